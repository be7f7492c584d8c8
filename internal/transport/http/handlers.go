package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/internal/service/conversation"
	"github.com/sandevgo/shopbot/internal/service/imagesearch"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
	"github.com/sandevgo/shopbot/pkg/log"
)

type Chatter interface {
	Run(ctx context.Context, req agent.Request) (agent.Reply, error)
	Conversation(id string) (conversation.Conversation, error)
	Reset(id string) bool
}

type ImageSearcher interface {
	SearchImage(ctx context.Context, data []byte, mime string, topK int) (retrieval.Recommendation, error)
}

type Reindexer interface {
	ReseedAndReindex(ctx context.Context) (retrieval.ReindexReport, error)
}

type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (core.Product, error)
	ListProducts(ctx context.Context) ([]core.Product, error)
}

type Handlers struct {
	chat      Chatter
	images    ImageSearcher
	reindexer Reindexer
	products  ProductReader
	maxUpload int64
}

type ChatRequest struct {
	Message        string             `json:"message" binding:"required"`
	ConversationID string             `json:"conversation_id"`
	Context        *core.ContextHints `json:"context"`
}

type ImageSearchResponse struct {
	Message string                 `json:"message"`
	Results []core.RetrievalResult `json:"results"`
}

// POST /api/chat
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	// A failed run still yields the fallback reply; the error is already logged.
	reply, _ := h.chat.Run(c.Request.Context(), agent.Request{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Hints:          req.Context,
	})
	respondOK(c, reply)
}

// GET /api/conversations/:id
func (h *Handlers) GetConversation(c *gin.Context) {
	conv, err := h.chat.Conversation(c.Param("id"))
	if errors.Is(err, core.ErrConversationNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Conversation not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to load conversation")
		return
	}
	respondOK(c, conv)
}

// DELETE /api/chat/history/:id
func (h *Handlers) ClearHistory(c *gin.Context) {
	id := c.Param("id")
	existed := h.chat.Reset(id)
	respondOK(c, gin.H{
		"message":         "Conversation history cleared",
		"conversation_id": id,
		"existed":         existed,
	})
}

// POST /api/products/image-search
func (h *Handlers) ImageSearch(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.FromCtx(ctx)

	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "an image file is required in field 'file'")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "too_large", "image is too large")
			return
		}
		respondError(c, http.StatusBadRequest, "invalid_request", "failed to read upload")
		return
	}

	mime := header.Header.Get("Content-Type")
	logger.Info().Str("filename", header.Filename).Str("type", mime).Int("size", len(data)).Msg("image search upload")

	rec, err := h.images.SearchImage(ctx, data, mime, 0)
	if errors.Is(err, imagesearch.ErrUnsupportedImage) {
		respondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "the upload is not an image")
		return
	}
	if err != nil {
		// Remote failures degrade to the fallback reply, like chat does.
		logger.Error().Err(err).Msg("image search failed")
		respondOK(c, ImageSearchResponse{
			Message: core.FallbackReply,
			Results: []core.RetrievalResult{},
		})
		return
	}

	logger.Info().Int("results", len(rec.Results)).Float64("top_score", rec.TopScore).Msg("image search done")
	results := rec.Results
	if results == nil {
		results = []core.RetrievalResult{}
	}
	respondOK(c, ImageSearchResponse{
		Message: imagesearch.FormatReply(rec),
		Results: results,
	})
}

// POST /api/admin/reseed-and-reindex
func (h *Handlers) ReseedAndReindex(c *gin.Context) {
	report, err := h.reindexer.ReseedAndReindex(c.Request.Context())
	if err != nil {
		log.FromCtx(c.Request.Context()).Error().Err(err).Msg("reseed and reindex failed")
		respondError(c, http.StatusInternalServerError, "internal", "Error occurred during reseed and reindexing")
		return
	}
	respondOK(c, report)
}

// GET /api/products
func (h *Handlers) ListProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		log.FromCtx(c.Request.Context()).Error().Err(err).Msg("list products failed")
		respondError(c, http.StatusInternalServerError, "internal", "Failed to list products")
		return
	}
	respondOK(c, products)
}

// GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "product id must be an integer")
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if errors.Is(err, core.ErrProductNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	if err != nil {
		log.FromCtx(c.Request.Context()).Error().Err(err).Int64("product_id", id).Msg("get product failed")
		respondError(c, http.StatusInternalServerError, "internal", "Failed to load product")
		return
	}
	respondOK(c, product)
}

// GET /health
func (h *Handlers) Health(c *gin.Context) {
	respondOK(c, gin.H{"status": "healthy", "time": time.Now().UTC()})
}
