package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"grocerygenius-api/internal/intent"
)

const maxQueryLength = 500

// Interpreter turns a free-text query into search hints.
// *intent.Interpreter implements it.
type Interpreter interface {
	Interpret(ctx context.Context, query string) intent.Intent
}

// IntentHandler serves query intent parsing.
type IntentHandler struct {
	interpreter Interpreter
}

// NewIntentHandler creates a new intent handler.
func NewIntentHandler(interpreter Interpreter) *IntentHandler {
	return &IntentHandler{interpreter: interpreter}
}

type intentRequest struct {
	Query string `json:"query"`
}

// Parse handles POST /api/v1/search/intent
func (h *IntentHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Query is required"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Query is required"})
		return
	}
	if len(query) > maxQueryLength {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Query is too long"})
		return
	}

	writeJSON(w, http.StatusOK, h.interpreter.Interpret(r.Context(), query))
}
