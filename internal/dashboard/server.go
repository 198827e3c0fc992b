package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/faaalmv/saf-gda/internal/archive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server exposes the read-only dashboard API: recent results, latest batch
// metrics, and a WebSocket feed of completed batches.
type Server struct {
	echo   *echo.Echo
	hub    *Hub
	store  *archive.Store
	logger *slog.Logger
}

func NewServer(hub *Hub, store *archive.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, hub: hub, store: store, logger: logger}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/results", s.handleResults)
	e.GET("/api/metrics", s.handleMetrics)
	e.GET("/ws", s.handleWS)
	return s
}

func (s *Server) Start(addr string) error {
	s.logger.Info("dashboard listening", "addr", addr)
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleResults(c echo.Context) error {
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	results, err := s.store.RecentResults(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error("dashboard results query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "archive query failed"})
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleMetrics(c echo.Context) error {
	m, ok, err := s.store.LatestMetrics(c.Request().Context())
	if err != nil {
		s.logger.Error("dashboard metrics query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "archive query failed"})
	}
	if !ok {
		return c.JSON(http.StatusOK, map[string]any{"batches": 0})
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	s.hub.AddClient(conn)
	return nil
}
