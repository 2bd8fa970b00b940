package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

type fakeAsker struct {
	mu        sync.Mutex
	questions []string
	topKs     []int
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, question string, topK int) (*models.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	f.topKs = append(f.topKs, topK)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Answer{
		Text: "Either party may terminate upon material breach.",
		Sources: []models.Source{
			{ContractID: "12", ParagraphID: 3, Score: 0.812},
		},
	}, nil
}

func newTestServer(asker Asker) *Server {
	return New(asker, Config{DefaultTopK: 4, MaxTopK: 10})
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ask-question", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoints(t *testing.T) {
	s := newTestServer(&fakeAsker{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"RAG API is running"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAskQuestion(t *testing.T) {
	asker := &fakeAsker{}
	s := newTestServer(asker)

	rec := post(t, s, `{"question": "How can the agreement be terminated?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"answer": "Either party may terminate upon material breach.",
		"sources": [{"contract_id": "12", "paragraph_id": 3, "score": 0.812}]
	}`, rec.Body.String())
	assert.Equal(t, []int{4}, asker.topKs)

	rec = post(t, s, `{"question": "Who pays?", "top_k": 7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{4, 7}, asker.topKs)
}

func TestAskQuestion_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"question": `},
		{"empty question", `{"question": "   "}`},
		{"zero top_k", `{"question": "q", "top_k": 0}`},
		{"negative top_k", `{"question": "q", "top_k": -2}`},
		{"top_k above limit", `{"question": "q", "top_k": 11}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{}
			rec := post(t, newTestServer(asker), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Empty(t, asker.questions)
		})
	}
}

func TestAskQuestion_ModelFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"embedding", &types.EmbeddingError{Op: "embed", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"generation", &types.GenerationError{Op: "generate", Err: context.DeadlineExceeded}, http.StatusBadGateway},
		{"unusable index", types.ErrIndexUnusable, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newTestServer(&fakeAsker{err: tt.err}), `{"question": "q"}`)
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
			assert.NotContains(t, rec.Body.String(), "Not found in document")
		})
	}
}

func TestWebSocket(t *testing.T) {
	asker := &fakeAsker{}
	ts := httptest.NewServer(newTestServer(asker).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "question", Content: "Termination?"}))
	require.NoError(t, conn.WriteJSON(Message{Type: "question", Content: "Renewal?", TopK: 2}))
	require.NoError(t, conn.WriteJSON(Message{Type: "chat", Content: "hi"}))
	require.NoError(t, conn.WriteJSON(Message{Type: "question", Content: "q", TopK: 99}))

	var reply struct {
		Type    string          `json:"type"`
		Content string          `json:"content"`
		Data    []models.Source `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "response", reply.Type)
	assert.Equal(t, "Either party may terminate upon material breach.", reply.Content)
	require.Len(t, reply.Data, 1)
	assert.Equal(t, "12", reply.Data[0].ContractID)

	reply.Data = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "response", reply.Type)

	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "unsupported message type")

	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "top_k")

	asker.mu.Lock()
	defer asker.mu.Unlock()
	assert.Equal(t, []string{"Termination?", "Renewal?"}, asker.questions)
	assert.Equal(t, []int{4, 2}, asker.topKs)
}

func TestWebSocket_ModelFailure(t *testing.T) {
	asker := &fakeAsker{err: &types.GenerationError{Op: "generate", Err: errors.New("model not loaded")}}
	ts := httptest.NewServer(newTestServer(asker).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "question", Content: "Termination?"}))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "model not loaded")
}
