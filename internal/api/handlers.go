package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/adapters/transport/cloud"
	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
	"github.com/satriahrh/mindwell/internal/auth"
	"github.com/satriahrh/mindwell/internal/heuristic"
	"github.com/satriahrh/mindwell/internal/schema"
	"github.com/satriahrh/mindwell/usecase"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var timeNow = time.Now

func (h *handler) analyzeVoice(c echo.Context) error {
	var req AnalyzeVoiceRequest
	if msg := decode(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
	}
	if err := sameUser(c, req.UID); err != nil {
		return err
	}

	result, err := h.moods.AnalyzeVoice(c.Request().Context(), req.UID, entities.AudioPayload{
		Base64:     req.AudioBase64,
		SampleRate: req.SampleRate,
		MimeType:   req.MimeType,
	})
	if err != nil {
		return h.analysisError(c, err)
	}
	return c.JSON(http.StatusOK, newAnalysisResponse(result.Record, result.Fallback))
}

func (h *handler) analyzeText(c echo.Context) error {
	var req AnalyzeTextRequest
	if msg := decode(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
	}
	if err := sameUser(c, req.UID); err != nil {
		return err
	}

	result, err := h.moods.AnalyzeText(c.Request().Context(), req.UID, req.Text)
	if err != nil {
		return h.analysisError(c, err)
	}
	return c.JSON(http.StatusOK, newAnalysisResponse(result.Record, result.Fallback))
}

func (h *handler) classify(c echo.Context) error {
	var req ClassifyRequest
	if msg := decode(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
	}
	return c.JSON(http.StatusOK, heuristic.Classify(req.Text))
}

func (h *handler) generateQuiz(c echo.Context) error {
	var req GenerateQuizRequest
	if msg := decode(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
	}
	if err := sameUser(c, req.UID); err != nil {
		return err
	}

	quiz, err := h.quizzes.GenerateQuiz(c.Request().Context(), req.UID)
	if err != nil {
		return h.analysisError(c, err)
	}
	return c.JSON(http.StatusOK, GenerateQuizResponse{QuizID: quiz.ID, Questions: quiz.Questions})
}

func (h *handler) scoreQuiz(c echo.Context) error {
	var req ScoreQuizRequest
	if msg := decode(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
	}
	if err := sameUser(c, req.UID); err != nil {
		return err
	}

	result, err := h.quizzes.ScoreQuiz(c.Request().Context(), req.UID, req.QuizID, req.Answers)
	if err != nil {
		return h.analysisError(c, err)
	}
	return c.JSON(http.StatusOK, newAnalysisResponse(result.Record, result.Fallback))
}

func (h *handler) getQuiz(c echo.Context) error {
	quiz, err := h.quizzes.GetQuiz(c.Request().Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		return h.analysisError(c, err)
	}
	return c.JSON(http.StatusOK, quiz)
}

func (h *handler) listMoods(c echo.Context) error {
	userID := auth.UserID(c)
	if uid := c.QueryParam("uid"); uid != "" {
		if err := sameUser(c, uid); err != nil {
			return err
		}
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.moods.History(c.Request().Context(), userID, limit)
	if err != nil {
		return h.analysisError(c, err)
	}
	if records == nil {
		records = []*entities.MoodScoreRecord{}
	}
	return c.JSON(http.StatusOK, MoodHistoryResponse{UID: userID, Records: records})
}

func (h *handler) forward(c echo.Context) error {
	req := c.Request()
	header := req.Header.Clone()
	// the bearer token is ours, not the upstream's
	header.Del(echo.HeaderAuthorization)
	resp, err := h.proxy.Forward(req.Context(), cloud.ProxyRequest{
		Method:   req.Method,
		Path:     req.URL.Path,
		RawQuery: req.URL.RawQuery,
		Header:   header,
		Body:     req.Body,
	})
	if err != nil {
		h.logger.Error("Proxy request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.Blob(resp.StatusCode, resp.ContentType, resp.Body)
}

// analysisError maps pipeline errors onto status codes
func (h *handler) analysisError(c echo.Context, err error) error {
	var (
		unavailable *usecase.UnavailableError
		failure     *entities.TransportFailure
		schemaErr   *schema.Error
	)

	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "analyzer_unavailable",
			Message:   unavailable.Error(),
			Fallback:  true,
			Heuristic: unavailable.Heuristic,
		})
	case errors.As(err, &failure) && failure.Kind == entities.FailureNotInstalled:
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:    "analyzer_unavailable",
			Message:  failure.Error(),
			Fallback: true,
		})
	case errors.As(err, &schemaErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "schema_error",
			Message: schemaErr.Error(),
		})
	case errors.Is(err, repositories.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Quiz not found"})
	case errors.Is(err, usecase.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "Quiz belongs to another user"})
	}

	h.logger.Error("Request failed",
		zap.String("path", c.Path()),
		zap.String("user_id", auth.UserID(c)),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "analysis_failed",
		Message: err.Error(),
	})
}
