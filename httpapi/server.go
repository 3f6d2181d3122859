// Copyright 2025 Lexrag Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package httpapi exposes the query pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lexrag/lexrag/core"
)

// QueryProcessor answers one query inside a conversation. Implemented by
// rag.Orchestrator.
type QueryProcessor interface {
	Process(ctx context.Context, query, chatID string) (*core.QueryResult, error)
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query  string `json:"query"`
	ChatID string `json:"chat_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler routes HTTP requests to the query processor.
type Handler struct {
	processor QueryProcessor
	logger    *slog.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(processor QueryProcessor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default().With("component", "httpapi")
	}
	return &Handler{processor: processor, logger: logger}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleRoot)
	r.Post("/query", h.handleQuery)
	return r
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("🧠 API RAG rodando"))
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	if strings.TrimSpace(req.ChatID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "chat_id is required"})
		return
	}

	result, err := h.processor.Process(r.Context(), req.Query, req.ChatID)
	if err != nil {
		h.logger.Error("query processing failed", "chat_id", req.ChatID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error processing query"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
