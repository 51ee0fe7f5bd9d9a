package handlers

import (
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/service"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	fields := []zap.Field{
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode),
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP: Бизнес-ошибка", businessErr.Err, fields...)
	} else {
		logger.Warn("HTTP: Бизнес-ошибка", fields...)
	}

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

// handleServiceError отвечает бизнес-ошибкой или 500 для всего остального
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation, service.CodeReservedIdentity:
		return http.StatusBadRequest
	case service.CodeNotEditable:
		return http.StatusForbidden
	case service.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
