package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/db"
	"horse.fit/newsalert/internal/globaltime"
	"horse.fit/newsalert/internal/location"
	"horse.fit/newsalert/internal/news"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// AlertStore is the read side the API needs from the database.
type AlertStore interface {
	Ping(ctx context.Context) error
	ListRecentAlerts(ctx context.Context, opts db.AlertListOptions) ([]news.Alert, error)
	GetAlert(ctx context.Context, alertID string) (news.Alert, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type Server struct {
	store   AlertStore
	matcher *location.Matcher
	stream  http.Handler
	metrics http.Handler
	logger  zerolog.Logger
	opts    Options
}

type relevanceResponse struct {
	AlertLocation   string `json:"alert_location"`
	UserLocation    string `json:"user_location"`
	NormalizedAlert string `json:"normalized_alert"`
	NormalizedUser  string `json:"normalized_user"`
	Relevant        bool   `json:"relevant"`
	Rule            string `json:"rule"`
}

// NewServer wires the API. stream and metricsHandler may be nil, in which
// case their routes are not mounted.
func NewServer(store AlertStore, matcher *location.Matcher, stream, metricsHandler http.Handler, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	if matcher == nil {
		matcher = location.NewMatcher(location.DefaultTables(), location.MatcherOptions{})
	}

	return &Server{
		store:   store,
		matcher: matcher,
		stream:  stream,
		metrics: metricsHandler,
		logger:  logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  opts.AllowedOrigins,
		},
	}
}

// Handler builds the echo router with middleware and routes.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/alerts", s.handleAlerts)
	api.GET("/alerts/:id", s.handleAlert)
	api.GET("/relevance", s.handleRelevance)
	if s.stream != nil {
		api.GET("/stream", echo.WrapHandler(s.stream))
	}
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}
	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("newsalert api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("newsalert api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if status >= 500 {
			_ = internalError(c, "Internal server error")
			return
		}
		_ = fail(c, status, message, nil)
		return
	}

	_ = c.String(status, message)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("database ping failed")
		return c.JSON(http.StatusServiceUnavailable, jsendResponse{
			Status:  "error",
			Message: "Database unavailable",
			Code:    http.StatusServiceUnavailable,
		})
	}
	return success(c, map[string]any{
		"service": "newsalert",
		"time":    globaltime.UTC(),
	})
}

// handleAlerts lists recent alerts. user_location keeps only alerts the
// matcher considers relevant to that place.
func (s *Server) handleAlerts(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultAlertLimit, 1, maxAlertLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	securityOnly, err := parseBool(c.QueryParam("security_only"))
	if err != nil {
		return failValidation(c, map[string]string{"security_only": err.Error()})
	}
	userLocation := strings.TrimSpace(c.QueryParam("user_location"))

	// Relevance is decided in Go, so a filtered request scans the widest
	// window and trims afterwards.
	fetchLimit := limit
	if userLocation != "" {
		fetchLimit = maxAlertLimit
	}

	alerts, err := s.store.ListRecentAlerts(c.Request().Context(), db.AlertListOptions{
		Limit:        fetchLimit,
		SecurityOnly: securityOnly,
		Location:     strings.TrimSpace(c.QueryParam("location")),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list alerts failed")
		return internalError(c, "Failed to load alerts")
	}

	scanned := len(alerts)
	if userLocation != "" {
		filtered := alerts[:0]
		for _, alert := range alerts {
			if s.matcher.IsRelevant(alert.Location, userLocation) {
				filtered = append(filtered, alert)
			}
		}
		alerts = filtered
	}
	if len(alerts) > limit {
		alerts = alerts[:limit]
	}

	return success(c, map[string]any{
		"items":   alerts,
		"count":   len(alerts),
		"scanned": scanned,
	})
}

func (s *Server) handleAlert(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return failValidation(c, map[string]string{"id": "must be a uuid"})
	}

	alert, err := s.store.GetAlert(c.Request().Context(), id)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Alert not found")
		}
		s.logger.Error().Err(err).Str("alert_id", id).Msg("get alert failed")
		return internalError(c, "Failed to load alert")
	}
	return success(c, alert)
}

func (s *Server) handleRelevance(c echo.Context) error {
	alertLocation := c.QueryParam("alert_location")
	userLocation := c.QueryParam("user_location")

	fieldErrors := map[string]string{}
	if strings.TrimSpace(alertLocation) == "" {
		fieldErrors["alert_location"] = "is required"
	}
	if strings.TrimSpace(userLocation) == "" {
		fieldErrors["user_location"] = "is required"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	rule := s.matcher.Explain(alertLocation, userLocation)
	normalizer := s.matcher.Normalizer()
	return success(c, relevanceResponse{
		AlertLocation:   alertLocation,
		UserLocation:    userLocation,
		NormalizedAlert: normalizer.Normalize(alertLocation),
		NormalizedUser:  normalizer.Normalize(userLocation),
		Relevant:        rule.Relevant(),
		Rule:            string(rule),
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseBool(raw string) (bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(trimmed)
	if err != nil {
		return false, fmt.Errorf("must be true or false")
	}
	return value, nil
}
