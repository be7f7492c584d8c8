package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
	"github.com/sandevgo/shopbot/pkg/log"
)

type Recommender interface {
	Recommend(ctx context.Context, query string, topK int, policy retrieval.Policy, opts ...retrieval.Option) (retrieval.Recommendation, error)
}

type ImageSearcher interface {
	SearchDescription(ctx context.Context, description, imageURL string, topK int) (retrieval.Recommendation, error)
}

// Failure is the tool result returned to the model when a call cannot run.
type Failure struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func newFailure(err error) Failure {
	msg := err.Error()
	// Remote failures are summarized; the model gets no provider internals.
	if errors.Is(err, core.ErrRetrieval) {
		msg = "catalog search is temporarily unavailable"
	}
	return Failure{Status: "error", Error: msg}
}

type ExecutorConfig struct {
	TextPolicy retrieval.Policy
	TextTopK   int
	ImageTopK  int
	MaxTopK    int
	// TokenLimit caps each tool message; 0 disables the cap.
	TokenLimit int
}

type Executor struct {
	recommender Recommender
	images      ImageSearcher
	cfg         ExecutorConfig
}

func NewExecutor(recommender Recommender, images ImageSearcher, cfg ExecutorConfig) *Executor {
	if cfg.TextPolicy == nil {
		cfg.TextPolicy = retrieval.GlobalThreshold(0.5)
	}
	return &Executor{
		recommender: recommender,
		images:      images,
		cfg:         cfg,
	}
}

// Execute runs calls in the order the model issued them. It never fails as a
// whole: every problem becomes a Failure result for that call.
func (e *Executor) Execute(ctx context.Context, calls []core.ToolCall) ([]core.Message, []core.ToolRecord) {
	messages := make([]core.Message, 0, len(calls))
	records := make([]core.ToolRecord, 0, len(calls))

	for _, tc := range calls {
		logger := log.FromCtx(ctx).With().Str("tool", tc.Function.Name).Logger()

		args, result := e.call(ctx, tc)
		if f, ok := result.(Failure); ok {
			logger.Warn().Str("error", f.Error).Msg("tool call failed")
		} else {
			logger.Info().Msg("tool call executed")
		}

		content, err := json.Marshal(result)
		if err != nil {
			content = []byte(fmt.Sprintf(`{"status":"error","error":%q}`, err.Error()))
		}

		messages = append(messages, core.Message{
			Role:       core.RoleTool,
			Name:       tc.Function.Name,
			Content:    e.truncate(ctx, string(content)),
			ToolCallID: tc.ID,
		})
		records = append(records, core.ToolRecord{
			Function:  tc.Function.Name,
			Arguments: args,
			Result:    result,
		})
	}
	return messages, records
}

func (e *Executor) call(ctx context.Context, tc core.ToolCall) (map[string]any, any) {
	args, err := parseArgs(tc.Function.Arguments)
	if err != nil {
		return map[string]any{"raw": tc.Function.Arguments}, newFailure(err)
	}

	switch tc.Function.Name {
	case ToolRecommendProducts:
		a, err := decodeRecommendArgs(args)
		if err != nil {
			return args, newFailure(err)
		}
		rec, err := e.recommender.Recommend(ctx, a.Query, e.topK(a.TopK, e.cfg.TextTopK), e.cfg.TextPolicy, retrieval.WithBudget(a.Budget))
		if err != nil {
			return args, newFailure(err)
		}
		return args, rec

	case ToolSearchByImage:
		a, err := decodeImageArgs(args)
		if err != nil {
			return args, newFailure(err)
		}
		rec, err := e.images.SearchDescription(ctx, a.Description, a.ImageURL, e.topK(a.TopK, e.cfg.ImageTopK))
		if err != nil {
			return args, newFailure(fmt.Errorf("%w: %w", core.ErrRetrieval, err))
		}
		return args, rec

	default:
		return args, newFailure(fmt.Errorf("%w: %s", core.ErrUnknownTool, tc.Function.Name))
	}
}

func (e *Executor) topK(requested, fallback int) int {
	k := requested
	if k <= 0 {
		k = fallback
	}
	if k <= 0 {
		k = 1
	}
	if e.cfg.MaxTopK > 0 {
		k = min(k, e.cfg.MaxTopK)
	}
	return k
}

var (
	tkOnce sync.Once
	tk     *tiktoken.Tiktoken
	tkErr  error
)

func tokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tk, tkErr
}

// truncate caps a tool message at TokenLimit tokens. A token is at least one
// byte, so short payloads skip the tokenizer entirely.
func (e *Executor) truncate(ctx context.Context, input string) string {
	limit := e.cfg.TokenLimit
	if limit <= 0 || len(input) <= limit {
		return input
	}

	enc, err := tokenizer()
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("tokenizer unavailable, truncating by bytes")
		return truncateBytes(input, limit*4)
	}

	tokens := enc.Encode(input, nil, nil)
	if len(tokens) <= limit {
		return input
	}
	return fmt.Sprintf("%s\n... [TRUNCATED %d tokens]", enc.Decode(tokens[:limit]), len(tokens)-limit)
}

func truncateBytes(input string, maxLen int) string {
	if len(input) <= maxLen {
		return input
	}
	return fmt.Sprintf("%s\n... [TRUNCATED %d bytes]", input[:maxLen], len(input)-maxLen)
}
