package command

import (
	"github.com/sandevgo/shopbot/internal/core"
)

func NewCommands(
	cfg core.ProviderConfig,
	state core.GlobalState,
	conversations resetter,
	indexer reindexer,
) []core.Command {
	return []core.Command{
		NewModelCommand(cfg, state),
		NewResetCommand(conversations),
		NewReindexCommand(indexer),
	}
}
