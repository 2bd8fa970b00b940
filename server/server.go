// Package server exposes the question answering pipeline over HTTP and a
// websocket channel.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string, topK int) (*models.Answer, error)
}

type Config struct {
	Addr        string
	DefaultTopK int
	MaxTopK     int
}

type QuestionRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k"`
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	TopK    int         `json:"top_k,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Server struct {
	config Config
	asker  Asker
	echo   *echo.Echo
}

func New(asker Asker, config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8000"
	}
	if config.DefaultTopK < 1 {
		config.DefaultTopK = 4
	}
	if config.MaxTopK < config.DefaultTopK {
		config.MaxTopK = config.DefaultTopK
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s %d %s request_id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	s := &Server{
		config: config,
		asker:  asker,
		echo:   e,
	}

	e.GET("/", s.handleStatus)
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.POST("/ask-question", s.handleAskQuestion)
	e.GET("/ws", s.handleWebSocket)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called, then returns http.ErrServerClosed.
func (s *Server) Start() error {
	log.Printf("Starting server on %s", s.config.Addr)
	return s.echo.Start(s.config.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "RAG API is running"})
}

func (s *Server) handleAskQuestion(c echo.Context) error {
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	topK := s.config.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if err := s.validate(req.Question, topK); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	answer, err := s.asker.Ask(c.Request().Context(), req.Question, topK)
	if err != nil {
		log.Printf("Error answering question (request_id=%s): %v", c.Response().Header().Get(echo.HeaderXRequestID), err)
		return c.JSON(statusFor(err), map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, answer)
}

func (s *Server) validate(question string, topK int) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("question must not be empty")
	}
	if topK < 1 || topK > s.config.MaxTopK {
		return fmt.Errorf("top_k must be between 1 and %d", s.config.MaxTopK)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case types.IsModelFailure(err):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrIndexUnusable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleWebSocket answers questions in the order they arrive on the
// connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			return nil
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "invalid message"})
			continue
		}

		s.handleMessage(ctx, conn, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	if msg.Type != "question" {
		s.sendMessage(conn, Message{Type: "error", Content: fmt.Sprintf("unsupported message type %q", msg.Type)})
		return
	}

	topK := msg.TopK
	if topK == 0 {
		topK = s.config.DefaultTopK
	}
	if err := s.validate(msg.Content, topK); err != nil {
		s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
		return
	}

	answer, err := s.asker.Ask(ctx, msg.Content, topK)
	if err != nil {
		log.Printf("Error answering question: %v", err)
		s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
		return
	}

	s.sendMessage(conn, Message{Type: "response", Content: answer.Text, Data: answer.Sources})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
