package installer

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep fills in derived settings.
type FinalizationStep struct {
	runtimePath string
}

func NewFinalizationStep(runtimePath string) Step {
	return &FinalizationStep{runtimePath: runtimePath}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	finalize(state, s.runtimePath)
	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}

func finalize(state *InstallState, runtimePath string) {
	state.Settings.EnableTelegram = state.Settings.TelegramToken != ""
	if state.Settings.Model == "" {
		state.Settings.Model = defaultModels[state.provider()]
	}
	if state.Settings.SeedCatalogPath == "" {
		state.Settings.SeedCatalogPath = filepath.Join(runtimePath, catalogFile)
	}
}
