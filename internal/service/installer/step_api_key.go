package installer

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// APIKeyStep collects the key of the selected provider. Ollama and custom
// endpoints may run without one.
type APIKeyStep struct {
	input      textinput.Model
	ready      bool
	title      string
	isOptional bool
}

func NewAPIKeyStep() Step {
	return &APIKeyStep{}
}

func (s *APIKeyStep) Init() tea.Cmd {
	return nil
}

func (s *APIKeyStep) initProvider(state *InstallState) {
	s.input = textinput.New()
	s.input.Focus()
	s.input.CharLimit = 255
	s.input.Width = 40
	s.input.EchoMode = textinput.EchoPassword
	s.input.EchoCharacter = '•'

	switch state.provider() {
	case "anthropic":
		s.title, s.input.Placeholder = "Anthropic API Key", "sk-ant-..."
	case "openrouter":
		s.title, s.input.Placeholder = "OpenRouter API Key", "sk-or-v1-..."
	case "ollama":
		s.title, s.isOptional = "Ollama API Key", true
	case "custom":
		s.title, s.isOptional = "API Key of the custom endpoint", true
	default:
		s.title, s.input.Placeholder = "OpenAI API Key", "sk-..."
	}
	if s.isOptional {
		s.input.Placeholder = "Optional - press Enter to skip"
		s.input.EchoMode = textinput.EchoNormal
	}
	s.ready = true
}

func (s *APIKeyStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !s.ready {
		s.initProvider(state)
		return s, textinput.Blink
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if s.input.Value() == "" && !s.isOptional {
			return s, cmd
		}
		state.SetAPIKey(s.input.Value())
		return nil, nil
	}
	return s, cmd
}

func (s *APIKeyStep) View(state *InstallState) string {
	if !s.ready {
		return "Loading...\n"
	}

	hint := ""
	if s.isOptional {
		hint = " (optional)"
	}
	return fmt.Sprintf("Enter your %s%s:\n\n%s\n\n(press enter to confirm)\n", s.title, hint, s.input.View())
}
