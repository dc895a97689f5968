package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/healthflow/ai-assistant/internal/config"
	"github.com/healthflow/ai-assistant/internal/core/domain"
	"github.com/healthflow/ai-assistant/internal/core/ports"
	"github.com/healthflow/ai-assistant/internal/observability/metrics"
)

const serviceName = "api"

// maxUploadBytes bounds multipart memory buffering, not file size.
const maxUploadMemory = 32 << 20

type Router struct {
	assistant ports.Assistant
	ingestor  ports.DocumentIngestor
	documents ports.DocumentReader
	metrics   *metrics.HTTPServerMetrics
	cfg       config.Config
}

func NewRouter(
	assistant ports.Assistant,
	ingestor ports.DocumentIngestor,
	documents ports.DocumentReader,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg config.Config,
) *Router {
	return &Router{
		assistant: assistant,
		ingestor:  ingestor,
		documents: documents,
		metrics:   serverMetrics,
		cfg:       cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.health)
	mux.HandleFunc("POST /chat/ask", rt.askForm)
	mux.HandleFunc("POST /chat/ask-json", rt.askJSON)
	mux.HandleFunc("POST /upload_docs", rt.uploadDocs)
	mux.HandleFunc("GET /documents/{id}", rt.getDocument)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrentRequests, backpressureWait)
	handler = accessLogMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) askForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
		return
	}
	rt.answer(w, r, r.PostFormValue("question"), r.PostFormValue("role"))
}

func (rt *Router) askJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	rt.answer(w, r, req.Question, req.Role)
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request, question, role string) {
	if strings.TrimSpace(question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer := rt.assistant.Answer(r.Context(), question, domain.NormalizeRole(role))
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, string(answer.Route), len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) uploadDocs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	role := domain.NormalizeRole(r.PostFormValue("role"))
	if !role.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admin can upload documents"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(r.Context(), fileHeader.Filename, role, file)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordIngestionFailure(serviceName)
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIngestion(serviceName, doc.ChunkCount)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "document ingested",
		"doc_id":        doc.ID,
		"accessible_to": string(doc.Role),
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
