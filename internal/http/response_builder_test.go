package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("Custom header not set")
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Error("Content-Type set without a body")
	}
}

func TestResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		TriggerExpenseCreated("abc").
		TriggerBudgetUpdated().
		TriggerSuccessNotification("Added ₹150 for Food").
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{"expense:created", "budget:updated", "show-notification"} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}

	var note struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(triggers["show-notification"], &note); err != nil {
		t.Fatal(err)
	}
	if note.Type != "success" || note.Message != "Added ₹150 for Food" || note.Duration != 3000 {
		t.Errorf("notification = %+v", note)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *ResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest, `{"error":"Invalid input"}`},
		{"unprocessable entity", UnprocessableEntityError("amount: invalid amount"), http.StatusUnprocessableEntity, `{"error":"amount: invalid amount"}`},
		{"internal server error", InternalServerError("Something broke"), http.StatusInternalServerError, `{"error":"Something broke"}`},
		{"not found", NotFoundError("Expense not found"), http.StatusNotFound, `{"error":"Expense not found"}`},
		{"unavailable", ServiceUnavailableError("off"), http.StatusServiceUnavailable, `{"error":"off"}`},
		{"escapes html", BadRequestError("<script>"), http.StatusBadRequest, `{"error":"\u003cscript\u003e"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.wantBody {
				t.Errorf("Body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}
