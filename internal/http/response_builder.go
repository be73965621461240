// Package http serves the JSON API.
//
// This file implements the builder for the response envelope shared by
// every endpoint: {success, data?, error?, count?}.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"teamfinance/internal/auth"
	"teamfinance/internal/core"
)

// envelope is the body of every API response. omitempty on an interface
// only drops nil, so an empty list still serializes as [].
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// ResponseBuilder provides a fluent API for building envelope responses.
type ResponseBuilder struct {
	statusCode int
	body       envelope
	headers    map[string]string
}

// NewResponse creates a successful response with status 200.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		body:       envelope{Success: true},
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.body.Data = v
	return b
}

// Count adds the number of items in a list response.
func (b *ResponseBuilder) Count(n int) *ResponseBuilder {
	b.body.Count = &n
	return b
}

// Fail marks the response unsuccessful with a client-facing message.
func (b *ResponseBuilder) Fail(message string) *ResponseBuilder {
	b.body.Success = false
	b.body.Error = message
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

const internalErrorMessage = "internal server error"

// clientErrors are matched most specific first; the first hit supplies
// the message shown to the client.
var clientErrors = []error{
	core.ErrTeamExists,
	core.ErrTeamNotFound,
	core.ErrEntryNotFound,
	core.ErrNotTeamCreator,
	core.ErrTeamWriteDenied,
	core.ErrInvalidKind,
	core.ErrInvalidAmount,
	auth.ErrInvalidToken,
	auth.ErrMissingToken,
	core.ErrMissingIdentity,
	core.ErrValidation,
	core.ErrUnauthenticated,
	core.ErrForbidden,
	core.ErrNotFound,
	core.ErrConflict,
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor picks the client-facing text for err. Server errors stay
// generic unless detail is requested.
func messageFor(err error, status int, detail bool) string {
	if status >= http.StatusInternalServerError {
		if detail {
			return err.Error()
		}
		return internalErrorMessage
	}
	var fe *core.FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

// ErrorResponse builds the envelope for err. detail exposes server error
// text and is meant for development only.
func ErrorResponse(err error, detail bool) *ResponseBuilder {
	status := StatusFor(err)
	return NewResponse().Status(status).Fail(messageFor(err, status, detail))
}
