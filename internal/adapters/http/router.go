package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
	"github.com/barros404/finance-sub003/internal/observability/metrics"
)

type Router struct {
	ingestor  ports.DocumentIngestor
	reader    ports.DocumentReader
	validator ports.DocumentValidator
	mapper    ports.BudgetMapper
	metrics   *metrics.HTTPServerMetrics
	options   Options
}

type Options struct {
	Service          string
	MaxUploadBytes   int64
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	validator ports.DocumentValidator,
	mapper ports.BudgetMapper,
	serverMetrics *metrics.HTTPServerMetrics,
	options Options,
) *Router {
	if options.Service == "" {
		options.Service = "api"
	}
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 32 << 20
	}
	return &Router{
		ingestor:  ingestor,
		reader:    reader,
		validator: validator,
		mapper:    mapper,
		metrics:   serverMetrics,
		options:   options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{documentID}", rt.getDocument)
	mux.HandleFunc("POST /v1/documents/{documentID}/items/{itemID}/confirm", rt.confirmItem)
	mux.HandleFunc("POST /v1/documents/{documentID}/feedback/confirm", rt.confirmFeedback)
	mux.HandleFunc("POST /v1/documents/{documentID}/validate", rt.validateDocument)
	mux.HandleFunc("POST /v1/documents/{documentID}/unusable", rt.markUnusable)
	mux.HandleFunc("POST /v1/documents/{documentID}/retry", rt.retryDocument)
	mux.HandleFunc("POST /v1/budgets/{budgetID}/mappings", rt.mapBudget)
	mux.HandleFunc("GET /v1/budgets/{budgetID}/mappings", rt.listMappings)
	mux.HandleFunc("POST /v1/mappings/{mappingID}/reclassify", rt.reclassifyMapping)
	mux.HandleFunc("POST /v1/mappings/{mappingID}/confirm", rt.confirmMapping)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.options.Service, handler)
	}
	handler = withAccessLog(handler)
	handler = withRequestID(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	uploaderID := strings.TrimSpace(r.FormValue("uploaded_by"))
	if uploaderID == "" {
		uploaderID = strings.TrimSpace(r.Header.Get("X-User-Id"))
	}

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		uploaderID,
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.options.Service, doc.MimeType)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	view, err := rt.reader.GetView(r.Context(), r.PathValue("documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) confirmItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string `json:"code"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	item, err := rt.validator.ConfirmItem(r.Context(), r.PathValue("documentID"), r.PathValue("itemID"), req.Code, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordConfirmation(rt.options.Service, "item")
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) confirmFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentType string `json:"document_type"`
		UserID       string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	err := rt.validator.ConfirmFeedback(r.Context(), r.PathValue("documentID"), domain.DocumentType(req.DocumentType), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordConfirmation(rt.options.Service, "feedback")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (rt *Router) validateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.validator.Validate(r.Context(), r.PathValue("documentID"), req.UserID); err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordValidation(rt.options.Service)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "validated"})
}

func (rt *Router) markUnusable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.validator.MarkUnusable(r.Context(), r.PathValue("documentID"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
}

func (rt *Router) retryDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.validator.Retry(r.Context(), r.PathValue("documentID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (rt *Router) mapBudget(w http.ResponseWriter, r *http.Request) {
	mappings, err := rt.mapper.MapBudget(r.Context(), r.PathValue("budgetID"))
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordMappingRun(rt.options.Service, "error", 0)
		}
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordMappingRun(rt.options.Service, "success", len(mappings))
		for _, m := range mappings {
			// at creation a custom category is only ever the review flag
			rt.metrics.RecordItemSuggestion(rt.options.Service, string(m.ItemKind), m.Confidence, m.CustomCategory != "")
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"mappings": mappings})
}

func (rt *Router) listMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := rt.mapper.ListMappings(r.Context(), r.PathValue("budgetID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (rt *Router) reclassifyMapping(w http.ResponseWriter, r *http.Request) {
	mapping, err := rt.mapper.Reclassify(r.Context(), r.PathValue("mappingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (rt *Router) confirmMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code           string `json:"code"`
		CustomCategory string `json:"custom_category"`
		UserID         string `json:"user_id"`
		Version        int    `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	mapping, err := rt.mapper.ConfirmMapping(r.Context(), r.PathValue("mappingID"), req.Code, req.CustomCategory, req.UserID, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordConfirmation(rt.options.Service, "mapping")
	}
	writeJSON(w, http.StatusOK, mapping)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
