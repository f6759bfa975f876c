// Package httptransport is the thin HTTP layer. It decodes requests,
// delegates to the analysis services, and translates typed errors into
// responses; no business logic lives here.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"nurture/internal/analysis/models"
	ratelimit "nurture/internal/ratelimit/models"
	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

// AnalysisService is the surface of the orchestrator consumed by this layer.
type AnalysisService interface {
	RequestAnalysis(ctx context.Context, cmd models.RequestAnalysisCommand) (*models.Analysis, error)
	Get(ctx context.Context, analysisID id.AnalysisID) (*models.Analysis, error)
	GetUserAnalyses(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Analysis, error)
	CountUserAnalysesToday(ctx context.Context, userID id.UserID) (int, error)
}

// UsageService exposes the read-only usage view.
type UsageService interface {
	GetRemaining(ctx context.Context, userID id.UserID) (*ratelimit.RemainingRequests, error)
}

// Handler wires analysis endpoints to the services.
type Handler struct {
	analyses AnalysisService
	usage    UsageService
	logger   *slog.Logger
}

// New constructs the handler with its dependencies.
func New(analyses AnalysisService, usage UsageService, logger *slog.Logger) *Handler {
	return &Handler{
		analyses: analyses,
		usage:    usage,
		logger:   logger,
	}
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/analyses", h.handleRequestAnalysis)
	r.Get("/v1/analyses/{analysisID}", h.handleGetAnalysis)
	r.Get("/v1/users/{userID}/analyses", h.handleListAnalyses)
	r.Get("/v1/users/{userID}/usage", h.handleGetUsage)
}

type requestAnalysisRequest struct {
	UserID      string `json:"user_id"`
	ChildID     string `json:"child_id"`
	Situation   string `json:"situation"`
	ChildAge    int    `json:"child_age"`
	ChildGender string `json:"child_gender"`
	Context     string `json:"context,omitempty"`
}

type analysisResponse struct {
	ID             string                  `json:"id"`
	UserID         string                  `json:"user_id"`
	ChildID        string                  `json:"child_id"`
	Situation      string                  `json:"situation"`
	Context        string                  `json:"context,omitempty"`
	Status         string                  `json:"status"`
	Recommendation *models.Recommendation  `json:"recommendation,omitempty"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
}

func toAnalysisResponse(a *models.Analysis) analysisResponse {
	return analysisResponse{
		ID:             a.ID.String(),
		UserID:         a.UserID.String(),
		ChildID:        a.ChildID.String(),
		Situation:      a.Situation,
		Context:        a.Context,
		Status:         string(a.Status),
		Recommendation: a.Recommendation,
		ErrorMessage:   a.ErrorMessage,
		CreatedAt:      a.CreatedAt,
		CompletedAt:    a.CompletedAt,
	}
}

func (h *Handler) handleRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req requestAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	childID, err := id.ParseChildID(req.ChildID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child_id")
		return
	}

	record, err := h.analyses.RequestAnalysis(ctx, models.RequestAnalysisCommand{
		UserID:      userID,
		ChildID:     childID,
		Situation:   req.Situation,
		ChildAge:    req.ChildAge,
		ChildGender: req.ChildGender,
		Context:     req.Context,
	})
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAnalysisResponse(record))
}

func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID, err := id.ParseAnalysisID(chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	record, err := h.analyses.Get(r.Context(), analysisID)
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalysisResponse(record))
}

func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)

	records, err := h.analyses.GetUserAnalyses(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}

	out := make([]analysisResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toAnalysisResponse(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": out})
}

func (h *Handler) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	remaining, err := h.usage.GetRemaining(r.Context(), userID)
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, remaining)
}

// writeDomainError maps the error taxonomy onto HTTP statuses. User-facing
// message formatting stays in this layer.
func (h *Handler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrInvalidSituation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sentinel.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "daily or hourly analysis limit reached")
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, sentinel.ErrAnalysisFailed):
		writeError(w, http.StatusBadGateway, "analysis failed, please try again later")
	case errors.Is(err, sentinel.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		h.logger.ErrorContext(ctx, "unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
