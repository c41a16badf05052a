package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"mediaid-gateway/internal/catalog"
	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/gateway"
	"mediaid-gateway/internal/logging"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
	"mediaid-gateway/internal/router"
	"mediaid-gateway/internal/session"
	"mediaid-gateway/internal/translator"
)

const (
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 90 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg      config.Config
	router   *router.Router
	gateway  *gateway.Gateway
	drugs    catalog.Catalog
	sessions *session.Store
	app      *echo.Echo
	address  string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rt *router.Router, gw *gateway.Gateway, drugs catalog.Catalog, sessions *session.Store) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}
	if gw == nil {
		return nil, errors.New("gateway must not be nil")
	}
	if drugs == nil {
		return nil, errors.New("catalog must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("session store must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Int64("latency_ms", v.Latency.Milliseconds()),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	srv := &Server{
		cfg:      cfg,
		router:   rt,
		gateway:  gw,
		drugs:    drugs,
		sessions: sessions,
		app:      e,
		address:  fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	zap.L().Info("starting server", zap.String("addr", s.address))

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		zap.L().Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)

	api := s.app.Group("/api")
	api.POST("/chat", s.handleChat)
	api.GET("/chat/history/:session_id", s.handleHistory)
	api.GET("/search", s.handleSearch)
	api.GET("/drugs", s.handleListDrugs)
	api.GET("/drugs/:id", s.handleGetDrug)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	modelInfo, err := s.router.Resolve(s.cfg.Chat.Model)
	if err != nil {
		return toHTTPError(ctx, err)
	}
	if p, ok := s.drugs.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			logging.WithCtx(ctx).Error("catalog ping failed", zap.Error(err))
			return requestError{
				Status:  http.StatusServiceUnavailable,
				Message: "catalog unavailable",
				Type:    "server_error",
			}
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": modelInfo.Provider,
		"model":    modelInfo.ID,
	})
}

func (s *Server) handleChat(c echo.Context) error {
	var req translator.ChatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	result, err := s.gateway.HandleChatTurn(ctx, req.SessionID, req.Message)
	if err != nil {
		return toHTTPError(ctx, err)
	}

	return c.JSON(http.StatusOK, translator.FromChatTurn(result))
}

func (s *Server) handleHistory(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	snap, _ := s.sessions.Get(sessionID)
	return c.JSON(http.StatusOK, translator.FromSnapshot(sessionID, snap))
}

func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()
	results, err := s.drugs.Search(ctx, c.QueryParam("query"))
	if err != nil {
		return toHTTPError(ctx, err)
	}
	return c.JSON(http.StatusOK, translator.FromDrugs(results))
}

func (s *Server) handleListDrugs(c echo.Context) error {
	ctx := c.Request().Context()
	results, err := s.drugs.List(ctx, c.QueryParam("symptom"))
	if err != nil {
		return toHTTPError(ctx, err)
	}
	return c.JSON(http.StatusOK, translator.FromDrugs(results))
}

func (s *Server) handleGetDrug(c echo.Context) error {
	ctx := c.Request().Context()
	drug, err := s.drugs.Get(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(ctx, err)
	}
	return c.JSON(http.StatusOK, translator.FromDrug(drug))
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		errType := "invalid_request_error"
		if he.Code >= http.StatusInternalServerError {
			errType = "server_error"
		}
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), errType, "")
		return
	}

	logging.WithCtx(c.Request().Context()).Error("unhandled error", zap.Error(err))
	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func toHTTPError(ctx context.Context, err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	case errors.Is(err, catalog.ErrNotFound):
		return requestError{
			Status:  http.StatusNotFound,
			Message: err.Error(),
			Type:    "not_found_error",
		}
	case errors.Is(err, provider.ErrUnknownModel):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	case errors.Is(err, provider.ErrUnavailable):
		return requestError{
			Status:  http.StatusBadGateway,
			Message: "upstream provider error",
			Type:    "upstream_error",
		}
	}

	logging.WithCtx(ctx).Error("request failed", zap.Error(err))
	return requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    "server_error",
	}
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("mediaid-gateway ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/chat")
	fmt.Println("  GET  /api/chat/history/:session_id")
	fmt.Println("  GET  /api/search?query=")
	fmt.Println("  GET  /api/drugs[?symptom=]")
	fmt.Println("  GET  /api/drugs/:id")
	fmt.Printf("Example:\n  curl http://%s:%d/api/chat -H 'Content-Type: application/json' -d '{\"session_id\":\"session_1\",\"message\":\"I have a headache\"}'\n\n", host, port)
}
