package srv

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/shopbot/pkg/log"
)

// tickerService runs fn every interval until shut down.
type tickerService struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error

	stop chan struct{}
	once sync.Once
}

func NewTicker(name string, interval time.Duration, fn func(ctx context.Context) error) Service {
	return &tickerService{
		name:     name,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
	}
}

func (t *tickerService) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	logger.Debug().Str("service", t.name).Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.stop:
			return nil
		case <-ticker.C:
			if err := t.fn(ctx); err != nil {
				logger.Error().Err(err).Str("service", t.name).Msg("tick failed")
			}
		}
	}
}

func (t *tickerService) Shutdown(ctx context.Context) error {
	t.once.Do(func() { close(t.stop) })
	return nil
}
