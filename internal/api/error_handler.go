package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/database"
	"billionaire_empire/internal/game"
	"billionaire_empire/internal/staking"
)

// ErrorCode represents different error types
type ErrorCode string

const (
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeRateLimit         ErrorCode = "RATE_LIMIT"
	ErrCodeInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidationError   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeDailyLimit        ErrorCode = "DAILY_LIMIT"
)

// APIError represents a structured API error
type APIError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ErrorResponse represents the complete error response
type ErrorResponse struct {
	Error   *APIError `json:"error"`
	Success bool      `json:"success"`
}

// rejection marks an error returned by the engine for a refused operation.
// Anything not wrapped this way and not otherwise recognized is a server fault.
type rejection struct{ err error }

func (r rejection) Error() string { return r.err.Error() }
func (r rejection) Unwrap() error { return r.err }

func reject(err error) error {
	if err == nil {
		return nil
	}
	return rejection{err: err}
}

// ErrorHandler handles HTTP errors with proper formatting
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and writes appropriate response
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, status := eh.classifyError(err)
	apiErr.RequestID = middleware.GetReqID(r.Context())

	eh.logError(r, apiErr, status, err)
	eh.writeErrorResponse(w, apiErr, status)
}

// classifyError determines the error type and HTTP status code
func (eh *ErrorHandler) classifyError(err error) (*APIError, int) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		cp := *apiErr
		return &cp, eh.getStatusCodeForError(cp.Code)
	}

	code := ErrCodeInternalError
	message := "Internal server error"
	var details map[string]interface{}
	switch {
	case errors.Is(err, game.ErrUnknownEntity), errors.Is(err, database.ErrNotFound):
		code, message = ErrCodeNotFound, err.Error()
	case errors.Is(err, game.ErrInsufficientCash),
		errors.Is(err, staking.ErrInsufficientBalance),
		errors.Is(err, banking.ErrInsufficientFunds):
		code, message = ErrCodeInsufficientFunds, err.Error()
	case errors.Is(err, game.ErrDailyLimit):
		code, message = ErrCodeDailyLimit, "Daily limit reached"
		details = map[string]interface{}{"reason": err.Error()}
	case errors.As(err, new(rejection)):
		code, message = ErrCodeValidationError, err.Error()
	}
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}, eh.getStatusCodeForError(code)
}

// getStatusCodeForError returns HTTP status code for error code
func (eh *ErrorHandler) getStatusCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeValidationError:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimit, ErrCodeDailyLimit:
		return http.StatusTooManyRequests
	case ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// logError logs the error with context
func (eh *ErrorHandler) logError(r *http.Request, apiErr *APIError, status int, cause error) {
	// 4xx не логируем, кроме ошибок валидации
	if status >= 400 && status < 500 && apiErr.Code != ErrCodeValidationError {
		return
	}

	logEntry := map[string]interface{}{
		"timestamp":  time.Now().Format(time.RFC3339),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"error_code": apiErr.Code,
		"message":    apiErr.Message,
		"ip":         getClientIP(r),
		"request_id": apiErr.RequestID,
	}
	if status >= 500 && cause != nil {
		logEntry["cause"] = cause.Error()
	}

	logJSON, _ := json.Marshal(logEntry)
	eh.logger.Printf("ERROR: %s", string(logJSON))
}

// writeErrorResponse writes the error response
func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, apiErr *APIError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiErr, Success: false})
}

// RecoveryMiddleware handles panics and converts them to errors
func (eh *ErrorHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				eh.logger.Printf("PANIC: %v\n%s", err, getStackTrace())
				eh.writeErrorResponse(w, NewInternalError("Internal server error"), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ValidationMiddleware validates common request parameters
func (eh *ErrorHandler) ValidationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength > 0 {
			if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
				eh.writeErrorResponse(w, NewValidationError("Content-Type must be application/json", nil), http.StatusBadRequest)
				return
			}
		}

		if r.ContentLength > maxBodyBytes {
			eh.writeErrorResponse(w, NewValidationError("Request too large", map[string]interface{}{
				"max_size": "1MB",
			}), http.StatusRequestEntityTooLarge)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func getStackTrace() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// Error creation helpers

func NewValidationError(message string, details map[string]interface{}) *APIError {
	return &APIError{
		Code:      ErrCodeValidationError,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:      ErrCodeInvalidRequest,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:      ErrCodeUnauthorized,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewRateLimitError(retryAfter int) *APIError {
	return &APIError{
		Code:    ErrCodeRateLimit,
		Message: "Too many requests",
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
		Timestamp: time.Now(),
	}
}

func NewInternalError(message string) *APIError {
	return &APIError{
		Code:      ErrCodeInternalError,
		Message:   message,
		Timestamp: time.Now(),
	}
}
