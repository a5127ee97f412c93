package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"spent/internal/core"
	"spent/internal/ledger"
	"spent/internal/services"
)

// JSONResponseBuilder provides a fluent API for API responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body; a nil body writes only the status.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// FromError maps service errors to responses. Input errors carry their
// message; anything else is reported as an internal error.
func FromError(err error) *JSONResponseBuilder {
	var parseErr *core.ParseError
	switch {
	case errors.As(err, &parseErr),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, services.ErrEmptySource),
		errors.Is(err, ledger.ErrOutOfRange),
		errors.Is(err, errEmptyField):
		return BadRequestError(err.Error())
	case errors.Is(err, services.ErrAlreadyExported):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExportDisabled):
		return ErrorResponse(http.StatusNotImplemented, err.Error())
	case errors.Is(err, ledger.ErrPersist):
		return InternalServerError("failed to persist ledger")
	default:
		return InternalServerError("internal error")
	}
}
