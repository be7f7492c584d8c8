package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/internal/service/conversation"
	"github.com/sandevgo/shopbot/internal/service/imagesearch"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
)

type fakeChat struct {
	last  agent.Request
	reply agent.Reply
	err   error
	convs map[string]conversation.Conversation
}

func (f *fakeChat) Run(_ context.Context, req agent.Request) (agent.Reply, error) {
	f.last = req
	return f.reply, f.err
}

func (f *fakeChat) Conversation(id string) (conversation.Conversation, error) {
	c, ok := f.convs[id]
	if !ok {
		return conversation.Conversation{}, core.ErrConversationNotFound
	}
	return c, nil
}

func (f *fakeChat) Reset(id string) bool {
	_, ok := f.convs[id]
	delete(f.convs, id)
	return ok
}

type fakeImages struct {
	mime string
	rec  retrieval.Recommendation
	err  error
}

func (f *fakeImages) SearchImage(_ context.Context, _ []byte, mime string, _ int) (retrieval.Recommendation, error) {
	f.mime = mime
	return f.rec, f.err
}

type fakeReindexer struct {
	err error
}

func (f fakeReindexer) ReseedAndReindex(context.Context) (retrieval.ReindexReport, error) {
	return retrieval.ReindexReport{Seeded: 3, Indexed: 3}, f.err
}

type fakeProducts struct{}

func (fakeProducts) GetProduct(_ context.Context, id int64) (core.Product, error) {
	if id == 1 {
		return core.Product{ID: 1, Name: "Wireless Headphones"}, nil
	}
	return core.Product{}, core.ErrProductNotFound
}

func (fakeProducts) ListProducts(context.Context) ([]core.Product, error) {
	return []core.Product{{ID: 1, Name: "Wireless Headphones"}}, nil
}

func newTestRouter(chat *fakeChat, images *fakeImages, reindexer fakeReindexer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(context.Background(), &Handlers{
		chat:      chat,
		images:    images,
		reindexer: reindexer,
		products:  fakeProducts{},
		maxUpload: 1 << 20,
	})
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestChat(t *testing.T) {
	chat := &fakeChat{reply: agent.Reply{ConversationID: "c1", Message: "Try the Sonic pair.", ToolCalls: []core.ToolRecord{}, Timestamp: time.Now()}}
	r := newTestRouter(chat, &fakeImages{}, fakeReindexer{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"message":"headphones please","conversation_id":"c1","context":{"user_preferences":{"budget":200}}}`))
	req.Header.Set("Content-Type", "application/json")

	w, body := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Try the Sonic pair.", body["message"])
	assert.Equal(t, "c1", body["conversation_id"])
	assert.Equal(t, []any{}, body["tool_calls"])

	assert.Equal(t, "headphones please", chat.last.Message)
	require.NotNil(t, chat.last.Hints)
	assert.EqualValues(t, 200, chat.last.Hints.UserPreferences["budget"])
}

func TestChat_DegradedStillAnswers(t *testing.T) {
	chat := &fakeChat{
		reply: agent.Reply{ConversationID: "c1", Message: core.FallbackReply, Degraded: true, ToolCalls: []core.ToolRecord{}},
		err:   errors.New("upstream exploded at 10.0.0.1"),
	}
	r := newTestRouter(chat, &fakeImages{}, fakeReindexer{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	w, body := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, core.FallbackReply, body["message"])
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestChat_RequiresMessage(t *testing.T) {
	r := newTestRouter(&fakeChat{}, &fakeImages{}, fakeReindexer{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"conversation_id":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	w, body := do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body, "error")
}

func TestConversationEndpoints(t *testing.T) {
	chat := &fakeChat{convs: map[string]conversation.Conversation{
		"c1": {ID: "c1", Turns: []core.Turn{{Role: core.RoleUser, Content: "hi"}}},
	}}
	r := newTestRouter(chat, &fakeImages{}, fakeReindexer{})

	w, body := do(t, r, httptest.NewRequest(http.MethodGet, "/api/conversations/c1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", body["conversation_id"])
	assert.Len(t, body["messages"], 1)

	w, body = do(t, r, httptest.NewRequest(http.MethodDelete, "/api/chat/history/c1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["existed"])

	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/conversations/c1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(t, r, httptest.NewRequest(http.MethodDelete, "/api/chat/history/c1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["existed"])
}

func imageUpload(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="shoe.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/image-search", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImageSearch(t *testing.T) {
	images := &fakeImages{rec: retrieval.Recommendation{
		Status: retrieval.StatusMatched,
		Results: []core.RetrievalResult{
			{Product: core.Product{ID: 4, Name: "Trail Runner", Brand: "Fleet", Price: 89}, Score: 0.71},
		},
	}}
	r := newTestRouter(&fakeChat{}, images, fakeReindexer{})

	w, body := do(t, r, imageUpload(t, "image/png", []byte("\x89PNG\r\n\x1a\n")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", images.mime)
	assert.Contains(t, body["message"], "Found matching products: Trail Runner by Fleet")
	assert.Len(t, body["results"], 1)
}

func TestImageSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		req    func(t *testing.T) *http.Request
		status int
	}{
		{
			name:   "missing file",
			req:    func(*testing.T) *http.Request { return httptest.NewRequest(http.MethodPost, "/api/products/image-search", nil) },
			status: http.StatusBadRequest,
		},
		{
			name:   "not an image",
			err:    imagesearch.ErrUnsupportedImage,
			req:    func(t *testing.T) *http.Request { return imageUpload(t, "text/plain", []byte("hello")) },
			status: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeChat{}, &fakeImages{err: tt.err}, fakeReindexer{})
			w, body := do(t, r, tt.req(t))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, body, "error")
			assert.NotContains(t, w.Body.String(), "10.0.0.1")
		})
	}
}

func TestImageSearch_RemoteFailureDegrades(t *testing.T) {
	images := &fakeImages{err: fmt.Errorf("describe: %w: 502 from 10.0.0.1", core.ErrRemoteCall)}
	r := newTestRouter(&fakeChat{}, images, fakeReindexer{})

	w, body := do(t, r, imageUpload(t, "image/png", []byte("\x89PNG\r\n\x1a\n")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, core.FallbackReply, body["message"])
	assert.Equal(t, []any{}, body["results"])
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestReseedAndReindex(t *testing.T) {
	r := newTestRouter(&fakeChat{}, &fakeImages{}, fakeReindexer{})
	w, body := do(t, r, httptest.NewRequest(http.MethodPost, "/api/admin/reseed-and-reindex", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["products_seeded"])
	assert.EqualValues(t, 3, body["products_indexed"])

	r = newTestRouter(&fakeChat{}, &fakeImages{}, fakeReindexer{err: errors.New("seed missing")})
	w, _ = do(t, r, httptest.NewRequest(http.MethodPost, "/api/admin/reseed-and-reindex", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "seed missing")
}

func TestProducts(t *testing.T) {
	r := newTestRouter(&fakeChat{}, &fakeImages{}, fakeReindexer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []core.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w, body := do(t, r, httptest.NewRequest(http.MethodGet, "/api/products/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wireless Headphones", body["name"])

	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/products/9", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeChat{}, &fakeImages{}, fakeReindexer{})
	w, body := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}
