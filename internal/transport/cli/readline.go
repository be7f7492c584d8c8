package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/internal/service/ui"
	"github.com/sandevgo/shopbot/pkg/log"
)

const defaultConversationID = "cli-local"

type Chatter interface {
	Run(ctx context.Context, req agent.Request) (agent.Reply, error)
}

type ReadLine struct {
	chat   Chatter
	router core.CmdRouter
	rl     *readline.Instance
}

func NewReadLine(chat Chatter, router core.CmdRouter, cfg core.AppConfig) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "🛍  ",
		HistoryFile:     filepath.Join(cfg.GetRuntimePath(), "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		chat:   chat,
		router: router,
		rl:     rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	fmt.Fprintln(r.rl.Stdout(), ui.DescStyle.Render("Ask for a product, /help for commands, 'exit' to quit."))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if out, ok := r.router.Execute(ctx, defaultConversationID, line); ok {
			fmt.Fprintln(r.rl.Stdout(), out)
			continue
		}

		reply, err := r.chat.Run(ctx, agent.Request{ConversationID: defaultConversationID, Message: line})
		for _, tc := range reply.ToolCalls {
			fmt.Fprintln(r.rl.Stdout(), ui.DescStyle.Render(fmt.Sprintf("  > %s %v", tc.Function, tc.Arguments)))
		}
		if err != nil {
			logger.Debug().Err(err).Msg("agent run degraded")
			fmt.Fprintln(r.rl.Stdout(), ui.WarnStyle.Render(reply.Message))
			continue
		}
		fmt.Fprintln(r.rl.Stdout(), ui.ReplyStyle.Render(reply.Message))
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
