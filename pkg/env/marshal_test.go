package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Token string `env:"TOKEN"`
}

type sample struct {
	Provider  string        `env:"PROVIDER,required"`
	Threshold float64       `env:"THRESHOLD"`
	Timeout   time.Duration `env:"TIMEOUT"`
	Enabled   bool          `env:"ENABLED"`
	Empty     string        `env:"EMPTY"`
	Note      string        `env:"NOTE"`
	Untagged  string
	Telegram  nested `envPrefix:"TELEGRAM_"`
}

func TestMarshalEnv(t *testing.T) {
	out, err := MarshalEnv(&sample{
		Provider:  "openai",
		Threshold: 0.5,
		Timeout:   30 * time.Second,
		Enabled:   true,
		Note:      "two words",
		Untagged:  "ignored",
		Telegram:  nested{Token: "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "PROVIDER=openai\n"+
		"THRESHOLD=0.5\n"+
		"TIMEOUT=30s\n"+
		"ENABLED=true\n"+
		"NOTE=\"two words\"\n"+
		"TELEGRAM_TOKEN=abc\n", out)
}

func TestMarshalEnv_RejectsNonPointer(t *testing.T) {
	_, err := MarshalEnv(sample{})
	assert.Error(t, err)
}
