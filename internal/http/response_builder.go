// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Client-side events, such as the "Added ₹X for Category" toast, travel in
// the HX-Trigger header so any htmx front end can react to them.

package http

import (
	"encoding/json"
	"net/http"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	triggers   map[string]interface{}
	statusCode int
	body       interface{}
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]interface{}),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data interface{}) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

func (b *ResponseBuilder) TriggerExpenseCreated(id string) *ResponseBuilder {
	return b.Trigger("expense:created", map[string]string{"id": id})
}

func (b *ResponseBuilder) TriggerExpenseDeleted(id string) *ResponseBuilder {
	return b.Trigger("expense:deleted", map[string]string{"id": id})
}

func (b *ResponseBuilder) TriggerBudgetUpdated() *ResponseBuilder {
	return b.Trigger("budget:updated", struct{}{})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

// TriggerNotification adds a show-notification trigger with the specified parameters.
func (b *ResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]interface{}{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *ResponseBuilder) TriggerSuccessNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v interface{}) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}
