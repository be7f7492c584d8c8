package agent

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/providers/embedding"
	"github.com/sandevgo/shopbot/internal/service/conversation"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
)

type chatCall struct {
	messages []core.Message
	choice   core.ToolChoice
}

type step struct {
	msg core.Message
	err error
}

// scriptedProvider replays canned completions in order.
type scriptedProvider struct {
	mu    sync.Mutex
	steps []step
	calls []chatCall
}

func (p *scriptedProvider) Chat(_ context.Context, history []core.Message, _ []core.Tool, choice core.ToolChoice) (core.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, chatCall{messages: append([]core.Message(nil), history...), choice: choice})
	if len(p.steps) == 0 {
		return core.Message{Role: core.RoleAssistant, Content: "ok"}, nil
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s.msg, s.err
}

func (p *scriptedProvider) Models(context.Context) ([]core.Model, error) { return nil, nil }

func text(s string) step {
	return step{msg: core.Message{Role: core.RoleAssistant, Content: s}}
}

func toolCalls(calls ...core.ToolCall) step {
	return step{msg: core.Message{Role: core.RoleAssistant, ToolCalls: calls}}
}

func call(id, name, args string) core.ToolCall {
	return core.ToolCall{ID: id, Type: "function", Function: core.FunctionCall{Name: name, Arguments: args}}
}

type staticPrompt string

func (s staticPrompt) Build() string { return string(s) }

type catalog struct {
	products []core.Product
}

func (c *catalog) GetProduct(_ context.Context, id int64) (core.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Product{}, core.ErrProductNotFound
}

func (c *catalog) GetProducts(ctx context.Context, ids []int64) ([]core.Product, error) {
	var out []core.Product
	for _, id := range ids {
		if p, err := c.GetProduct(ctx, id); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *catalog) ListProducts(context.Context) ([]core.Product, error) { return c.products, nil }

func (c *catalog) ReplaceAll(_ context.Context, products []core.Product) (int, error) {
	c.products = products
	return len(products), nil
}

type fixture struct {
	agent      *Agent
	provider   *scriptedProvider
	summarizer *scriptedProvider
	store      *conversation.Store
	states     []State
}

var testCatalog = []core.Product{
	{ID: 1, Name: "Wireless Headphones", Brand: "Sonic", Price: 199},
	{ID: 2, Name: "Running T-Shirt", Brand: "Fleet", Price: 25},
	{ID: 3, Name: "Ceramic Teapot", Brand: "Kiln", Price: 40},
}

type nopImages struct{}

func (nopImages) SearchDescription(context.Context, string, string, int) (retrieval.Recommendation, error) {
	return retrieval.Recommendation{Status: retrieval.StatusNoMatch, Results: []core.RetrievalResult{}}, nil
}

func newFixture(steps ...step) *fixture {
	f := &fixture{
		provider:   &scriptedProvider{steps: steps},
		summarizer: &scriptedProvider{steps: []step{text("summary of earlier turns")}},
		store:      conversation.NewStore(time.Minute),
	}

	gateway := embedding.NewGateway(embedding.NewHash(embedding.DefaultHashDimension), time.Second)
	cat := &catalog{products: testCatalog}
	idx := retrieval.NewIndex()
	if _, err := retrieval.NewIndexer(cat, gateway, idx, "").Rebuild(context.Background()); err != nil {
		panic(err)
	}

	svc := retrieval.NewService(gateway, idx, cat, 10)
	executor := NewExecutor(svc, nopImages{}, ExecutorConfig{
		TextPolicy: retrieval.GlobalThreshold(0.5),
		TextTopK:   2,
		ImageTopK:  5,
		MaxTopK:    10,
	})
	manager := conversation.NewManager(f.summarizer, nil, conversation.Config{MaxHistoryTurns: 4, KeepRecentTurns: 2})

	f.agent = NewAgent(f.provider, f.store, manager, staticPrompt("sys"), executor, time.Second,
		func(_ context.Context, _ string, _, to State) { f.states = append(f.states, to) },
	)
	return f
}
