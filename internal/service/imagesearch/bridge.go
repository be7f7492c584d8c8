package imagesearch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
	"github.com/sandevgo/shopbot/pkg/log"
)

const (
	DescribeInstruction = "You analyze a shopping product photo and produce a concise English query " +
		"that captures product type, visible brand if any, and key attributes like color/material. " +
		"Return a short phrase (<=12 words), no full sentences."

	maxDescriptionWords = 12
	msgNoDescription    = "The image could not be described, so nothing could be searched."
	reasonFormat        = "Matched image query: '%s'"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

type Recommender interface {
	Recommend(ctx context.Context, query string, topK int, policy retrieval.Policy, opts ...retrieval.Option) (retrieval.Recommendation, error)
}

// Bridge turns an image into a short catalog query and runs it through text
// retrieval with the image threshold. Searching by description keeps the
// vision model swappable without touching the index.
type Bridge struct {
	vision    core.VisionDescriber
	retrieval Recommender
	policy    retrieval.Policy
	topK      int
	timeout   time.Duration
}

func NewBridge(vision core.VisionDescriber, rec Recommender, policy retrieval.Policy, topK int, timeout time.Duration) *Bridge {
	return &Bridge{
		vision:    vision,
		retrieval: rec,
		policy:    policy,
		topK:      topK,
		timeout:   timeout,
	}
}

// Describe returns a short product phrase for the image at imageURL (http or data URL).
func (b *Bridge) Describe(ctx context.Context, imageURL string) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	desc, err := b.vision.DescribeImage(ctx, imageURL, DescribeInstruction)
	if err != nil {
		return "", err
	}
	return clampWords(desc, maxDescriptionWords), nil
}

// SearchImage handles raw uploads.
func (b *Bridge) SearchImage(ctx context.Context, data []byte, mime string, topK int) (retrieval.Recommendation, error) {
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return retrieval.Recommendation{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime)
	}

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	return b.SearchDescription(ctx, "", dataURL, topK)
}

// SearchDescription searches by an already known description, describing
// imageURL first when the description is empty.
func (b *Bridge) SearchDescription(ctx context.Context, description, imageURL string, topK int) (retrieval.Recommendation, error) {
	logger := log.FromCtx(ctx)

	description = clampWords(description, maxDescriptionWords)
	if description == "" && imageURL != "" {
		desc, err := b.Describe(ctx, imageURL)
		if err != nil {
			return retrieval.Recommendation{}, fmt.Errorf("describe image: %w", err)
		}
		description = desc
		logger.Debug().Str("description", description).Msg("image described")
	}

	if description == "" {
		return retrieval.Recommendation{
			Status:  retrieval.StatusNoMatch,
			Results: []core.RetrievalResult{},
			Message: msgNoDescription,
		}, nil
	}

	if topK <= 0 {
		topK = b.topK
	}
	return b.retrieval.Recommend(ctx, description, topK, b.policy, retrieval.WithReason(reasonFormat))
}

// FormatReply renders the short human summary of an image search.
func FormatReply(rec retrieval.Recommendation) string {
	if !rec.Matched() || len(rec.Results) == 0 {
		return "No matching products found. Try a clearer image or different angle."
	}

	top := rec.Results[:min(3, len(rec.Results))]
	parts := make([]string, 0, len(top))
	for _, r := range top {
		s := r.Product.Name
		if s == "" {
			s = "Unknown"
		}
		if r.Product.Brand != "" {
			s += " by " + r.Product.Brand
		}
		s += fmt.Sprintf(" ¥%.2f", r.Product.Price)
		parts = append(parts, s)
	}
	return "Found matching products: " + strings.Join(parts, "; ") + "."
}

func clampWords(s string, n int) string {
	words := strings.Fields(strings.Trim(strings.TrimSpace(s), `"'.`))
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
