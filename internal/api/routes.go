package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/adapters/transport/cloud"
	"github.com/satriahrh/mindwell/internal/auth"
	"github.com/satriahrh/mindwell/internal/observability"
	"github.com/satriahrh/mindwell/internal/websocket"
	"github.com/satriahrh/mindwell/usecase"
)

// Dependencies are the services the HTTP surface is built on.
// Hub, Proxy and Metrics are optional.
type Dependencies struct {
	Moods   *usecase.MoodAnalysisService
	Quizzes *usecase.QuizService
	Auth    *auth.Authenticator
	Hub     *websocket.Hub
	Proxy   *cloud.Proxy
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

type handler struct {
	moods   *usecase.MoodAnalysisService
	quizzes *usecase.QuizService
	hub     *websocket.Hub
	proxy   *cloud.Proxy
	logger  *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handler{
		moods:   deps.Moods,
		quizzes: deps.Quizzes,
		hub:     deps.Hub,
		proxy:   deps.Proxy,
		logger:  deps.Logger,
	}
	if e.Validator == nil {
		e.Validator = NewRequestValidator()
	}
	requireAuth := deps.Auth.Middleware(deps.Logger)

	// Health check
	e.GET("/health", h.health)

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	v := e.Group("/api")

	// Offline keyword classifier
	v.POST("/classify", h.classify)

	v.POST("/analyze-voice", h.analyzeVoice, requireAuth)
	v.POST("/analyze-text", h.analyzeText, requireAuth)
	v.POST("/generate-quiz", h.generateQuiz, requireAuth)
	v.POST("/score-quiz", h.scoreQuiz, requireAuth)
	v.GET("/quiz/:id", h.getQuiz, requireAuth)
	v.GET("/moods", h.listMoods, requireAuth)

	if deps.Hub != nil {
		e.GET("/ws/moods", h.moodFeed, requireAuth)
	}

	if deps.Proxy != nil {
		prefix := strings.TrimRight(deps.Proxy.Prefix(), "/")
		e.Any(prefix+"/*", h.forward, requireAuth)
	}
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:             "ok",
		Service:            "mindwell",
		Transport:          h.moods.TransportName(),
		TransportAvailable: h.moods.TransportAvailable(),
		Time:               timeNow().UTC(),
	})
}

func (h *handler) moodFeed(c echo.Context) error {
	userID := auth.UserID(c)
	h.logger.Info("Mood feed connection authenticated", zap.String("user_id", userID))
	return websocket.HandleWebSocket(h.hub, c, userID, h.logger)
}

// decode binds and validates a request body, returning a client facing message on failure
func decode(c echo.Context, req interface{}) string {
	if err := c.Bind(req); err != nil {
		return "Invalid request format"
	}
	if err := c.Validate(req); err != nil {
		return err.Error()
	}
	return ""
}

// sameUser rejects bodies that name a different user than the bearer token
func sameUser(c echo.Context, uid string) error {
	if uid != auth.UserID(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "uid_mismatch",
			Message: "uid does not match the authenticated user",
		})
	}
	return nil
}
