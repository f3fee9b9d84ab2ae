// Copyright 2026 PolicyCopilot
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

package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Server exposes the pipeline over HTTP
type Server struct {
	pipeline *Pipeline
	audit    *AuditLogger
	metrics  *MetricsCollector
	provider LLMProvider
}

// NewServer wires the HTTP layer over a built pipeline
func NewServer(pipeline *Pipeline, audit *AuditLogger, metrics *MetricsCollector, provider LLMProvider) *Server {
	return &Server{
		pipeline: pipeline,
		audit:    audit,
		metrics:  metrics,
		provider: provider,
	}
}

// Routes builds the service's HTTP router
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	r.HandleFunc("/api/v1/queries", s.processQueryHandler).Methods("POST")
	r.HandleFunc("/api/v1/queries/{id}/audit", s.queryAuditHandler).Methods("GET")
	r.HandleFunc("/api/v1/evaluation/summary", s.evaluationSummaryHandler).Methods("GET")

	return r
}

type queryRequest struct {
	Query       string `json:"query"`
	SubmittedBy string `json:"submitted_by"`
}

func (s *Server) processQueryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.pipeline.ProcessQuery(r.Context(), req.Query, req.SubmittedBy)

	status := http.StatusOK
	if result.ReasonCode == ReasonGuardrailRejection {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *Server) queryAuditHandler(w http.ResponseWriter, r *http.Request) {
	queryID := mux.Vars(r)["id"]

	records := s.audit.RecordsForQuery(queryID)
	if len(records) == 0 {
		writeJSONError(w, http.StatusNotFound, "no audit records for query")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query_id": queryID,
		"records":  records,
	})
}

func (s *Server) evaluationSummaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Summary())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":        "healthy",
		"llm_provider":  s.provider.Name(),
		"llm_healthy":   s.provider.IsHealthy(),
		"audit_healthy": s.audit.IsHealthy(),
	}
	if !s.provider.IsHealthy() || !s.audit.IsHealthy() {
		health["status"] = "degraded"
	}
	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
