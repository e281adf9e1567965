package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"election-service/internal/auth"
	"election-service/internal/service"
	"election-service/internal/util"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse acknowledges actions that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

func respondWithJSON(logger *zap.Logger, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(logger *zap.Logger, w http.ResponseWriter, statusCode int, err error, message string) {
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP error response",
			util.ErrorField(err),
			util.Int("status_code", statusCode),
			util.String("message", message))
		// internal details stay in the log
		err = errors.New(http.StatusText(statusCode))
	} else {
		logger.Debug("HTTP error response",
			util.ErrorField(err),
			util.Int("status_code", statusCode))
	}
	respondWithJSON(logger, w, statusCode, ErrorResponse{Error: err.Error(), Message: message})
}

// respondWithServiceError writes FieldErrors as the bare field map and everything else
// through the error envelope.
func respondWithServiceError(logger *zap.Logger, w http.ResponseWriter, err error, message string) {
	var fieldErrs service.FieldErrors
	if errors.As(err, &fieldErrs) {
		respondWithJSON(logger, w, http.StatusBadRequest, fieldErrs)
		return
	}
	respondWithError(logger, w, getStatusCode(err), err, message)
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrVoterNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyDecided):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountLocked):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
