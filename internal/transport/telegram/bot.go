package telegram

import (
	"context"
	"fmt"
	"io"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/shopbot/internal/config"
	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/internal/service/imagesearch"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
	"github.com/sandevgo/shopbot/pkg/log"
)

const (
	baseContextKey = "base_context"
	maxPhotoBytes  = 10 << 20
)

type Chatter interface {
	Run(ctx context.Context, req agent.Request) (agent.Reply, error)
}

type ImageSearcher interface {
	SearchImage(ctx context.Context, data []byte, mime string, topK int) (retrieval.Recommendation, error)
}

type Bot struct {
	bot    *tele.Bot
	cfg    *config.TelegramConfig
	chat   Chatter
	images ImageSearcher
	router core.CmdRouter
	sender *sender
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	chat Chatter,
	images ImageSearcher,
	router core.CmdRouter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:    b,
		cfg:    cfg,
		chat:   chat,
		images: images,
		router: router,
		sender: newSender(b),
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || !cfg.IsAllowed(c.Sender().ID) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)
	b.Handle(tele.OnPhoto, bot.handlePhoto)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	commands := make([]tele.Command, 0)
	for _, cmd := range b.router.ListCommands() {
		commands = append(commands, tele.Command{Text: cmd.Name(), Description: cmd.Description()})
	}
	if err := b.bot.SetCommands(commands); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to register telegram commands")
	}

	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func conversationID(c tele.Context) string {
	return fmt.Sprintf("telegram-%d", c.Chat().ID)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	id := conversationID(c)

	if out, ok := b.router.Execute(ctx, id, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Recipient(), out)
	}

	_ = c.Notify(tele.Typing)

	// Run always yields a sendable reply; failures were logged by the agent.
	reply, _ := b.chat.Run(ctx, agent.Request{ConversationID: id, Message: c.Text()})
	return b.sender.sendMarkdown(ctx, c.Recipient(), reply.Message)
}

func (b *Bot) handlePhoto(c tele.Context) error {
	ctx := log.WithConversation(c.Get(baseContextKey).(context.Context), conversationID(c))
	logger := log.FromCtx(ctx)

	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	_ = c.Notify(tele.Typing)

	data, err := b.download(&photo.File)
	if err != nil {
		logger.Error().Err(err).Msg("failed to download photo")
		return c.Send(core.FallbackReply)
	}

	// Telegram re-encodes photos as JPEG.
	rec, err := b.images.SearchImage(ctx, data, "image/jpeg", 0)
	if err != nil {
		logger.Error().Err(err).Msg("image search failed")
		return c.Send(core.FallbackReply)
	}

	logger.Info().Int("results", len(rec.Results)).Msg("photo search done")
	return b.sender.sendMarkdown(ctx, c.Recipient(), imagesearch.FormatReply(rec))
}

func (b *Bot) download(file *tele.File) ([]byte, error) {
	rc, err := b.bot.File(file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}
	return data, nil
}
