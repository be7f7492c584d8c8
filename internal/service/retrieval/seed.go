package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/inbucket/html2text"
	"gopkg.in/yaml.v3"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/retry"
)

const maxSeedSize = 8 << 20

type seedFile struct {
	Products []core.Product `yaml:"products"`
}

// SeedLoader reads the catalog seed from a local YAML file or an http(s) URL.
type SeedLoader struct {
	client  *http.Client
	retrier *retry.Retrier
}

func NewSeedLoader() *SeedLoader {
	return &SeedLoader{
		client:  &http.Client{Timeout: 30 * time.Second},
		retrier: retry.NewDefaultRetrier(),
	}
}

func (l *SeedLoader) Load(ctx context.Context, source string) ([]core.Product, error) {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", source, err)
	}

	return ParseSeed(data)
}

func (l *SeedLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := l.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", core.ShopUserAgent)

		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch seed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			if resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxSeedSize))
		return err
	})
	return body, err
}

// ParseSeed decodes the YAML catalog and flattens any HTML in descriptions
// to plain text, which is what gets embedded and shown to users.
func ParseSeed(data []byte) ([]core.Product, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seen := make(map[int64]struct{}, len(seed.Products))
	for i := range seed.Products {
		p := &seed.Products[i]
		if p.ID <= 0 {
			return nil, fmt.Errorf("seed product %d: id must be positive", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("seed product %d: duplicate id %d", i, p.ID)
		}
		seen[p.ID] = struct{}{}

		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("seed product %d: name is required", p.ID)
		}

		if strings.Contains(p.Description, "<") {
			text, err := html2text.FromString(p.Description, html2text.Options{OmitLinks: true})
			if err != nil {
				return nil, fmt.Errorf("seed product %d: description: %w", p.ID, err)
			}
			p.Description = text
		}
		p.Description = strings.TrimSpace(p.Description)
	}

	return seed.Products, nil
}
