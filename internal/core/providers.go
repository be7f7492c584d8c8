package core

import "context"

type AIProvider interface {
	Chat(ctx context.Context, history []Message, tools []Tool, choice ToolChoice) (Message, error)
	Models(ctx context.Context) ([]Model, error)
}

// Embedder maps text to vectors. Implementations are not required to
// normalize; the embedding gateway does.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VisionDescriber interface {
	DescribeImage(ctx context.Context, imageURL, instruction string) (string, error)
}
