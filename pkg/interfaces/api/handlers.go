package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/matching"
	"github.com/vsinha/mrp-planner/pkg/application/services/orchestration"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// Planner is the planning surface the handlers call
type Planner interface {
	RunMRP(ctx context.Context, req orchestration.RunRequest) (*dto.PlanResult, error)
	LatestPlan(ctx context.Context) (*dto.PlanResult, error)
	GetPlan(ctx context.Context, version int) (*dto.PlanResult, error)
	ListRuns(ctx context.Context) ([]*entities.MRPRun, error)
	MarkReviewed(ctx context.Context, messageID string) (*entities.ActionMessage, error)
	MarkImplemented(ctx context.Context, messageID string) (*entities.ActionMessage, error)
	GetCapacitySnapshot(ctx context.Context, period time.Time) ([]entities.WorkCenterLoad, error)
}

// Handler holds the services behind the HTTP routes
type Handler struct {
	planner    Planner
	reconciler *matching.Reconciler
	logger     zerolog.Logger
}

func NewHandler(planner Planner, reconciler *matching.Reconciler, logger zerolog.Logger) *Handler {
	return &Handler{
		planner:    planner,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) RunMRP(w http.ResponseWriter, r *http.Request) {
	var req RunRequestDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	runReq := orchestration.RunRequest{Scope: entities.Scope{Entity: req.Entity}}
	for _, sku := range req.SKUs {
		runReq.Scope.SKUs = append(runReq.Scope.SKUs, entities.PartNumber(sku))
	}
	if req.Today != "" {
		today, err := time.Parse(dateLayout, req.Today)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid today date", err)
			return
		}
		runReq.Today = today
	}

	result, err := h.planner.RunMRP(r.Context(), runReq)
	if err != nil {
		h.fail(w, "mrp run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.planner.ListRuns(r.Context())
	if err != nil {
		h.fail(w, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []*entities.MRPRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetLatestPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.LatestPlan(r.Context())
	if err != nil {
		h.fail(w, "no committed plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, "invalid plan version", err)
		return
	}
	plan, err := h.planner.GetPlan(r.Context(), version)
	if err != nil {
		h.fail(w, "plan version not found", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) ReviewAction(w http.ResponseWriter, r *http.Request) {
	msg, err := h.planner.MarkReviewed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to review action message", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) ImplementAction(w http.ResponseWriter, r *http.Request) {
	msg, err := h.planner.MarkImplemented(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to implement action message", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// GetCapacity returns the work center loads of the bucket containing ?period=YYYY-MM-DD
func (h *Handler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	period, err := time.Parse(dateLayout, r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "period must be a YYYY-MM-DD date", err)
		return
	}
	loads, err := h.planner.GetCapacitySnapshot(r.Context(), period)
	if err != nil {
		h.fail(w, "capacity snapshot unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWorkCenterLoadViews(loads))
}

func (h *Handler) OpenMatchLine(w http.ResponseWriter, r *http.Request) {
	var req OpenLineDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	line, err := h.reconciler.OpenLine(r.Context(), matching.OpenLineRequest{
		ID:               req.ID,
		POID:             req.POID,
		LineNumber:       req.LineNumber,
		PartNumber:       entities.PartNumber(req.PartNumber),
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		TolerancePercent: req.TolerancePercent,
	})
	if err != nil {
		h.fail(w, "failed to open match line", err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *Handler) GetMatchLine(w http.ResponseWriter, r *http.Request) {
	line, err := h.reconciler.GetLine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "match line not found", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) RecordReceipt(w http.ResponseWriter, r *http.Request) {
	var req MatchEventDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	line, err := h.reconciler.RecordReceipt(r.Context(), chi.URLParam(r, "id"), req.Quantity, req.Amount, req.EventKey)
	if err != nil {
		h.fail(w, "failed to record receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) RecordInvoice(w http.ResponseWriter, r *http.Request) {
	var req MatchEventDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	line, err := h.reconciler.RecordInvoice(r.Context(), chi.URLParam(r, "id"), req.Quantity, req.Amount, req.EventKey)
	if err != nil {
		h.fail(w, "failed to record invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) ReverseEvent(w http.ResponseWriter, r *http.Request) {
	var req ReversalDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	line, err := h.reconciler.ReverseEvent(r.Context(), chi.URLParam(r, "id"), req.EventID, req.Reason)
	if err != nil {
		h.fail(w, "failed to reverse event", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) ResolveVariance(w http.ResponseWriter, r *http.Request) {
	var req ResolutionDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	line, err := h.reconciler.ResolveVariance(r.Context(), chi.URLParam(r, "id"), entities.Resolution{
		ResolvedBy: req.ResolvedBy,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, "failed to resolve variance", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) ReleaseForPayment(w http.ResponseWriter, r *http.Request) {
	line, err := h.reconciler.ReleaseForPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to release for payment", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req PaymentDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	line, err := h.reconciler.MarkPaid(r.Context(), chi.URLParam(r, "id"), req.PaymentRef)
	if err != nil {
		h.fail(w, "failed to mark paid", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) GetHeaderStatus(w http.ResponseWriter, r *http.Request) {
	poID := chi.URLParam(r, "poID")
	status, err := h.reconciler.HeaderStatus(r.Context(), poID)
	if err != nil {
		h.fail(w, "purchase order has no match lines", err)
		return
	}
	writeJSON(w, http.StatusOK, HeaderStatusDTO{POID: poID, Status: status})
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(message)
	}
	writeError(w, status, message, err)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrRunFailed):
		return http.StatusInternalServerError
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrScopeLocked),
		errors.Is(err, entities.ErrConcurrencyConflict),
		errors.Is(err, entities.ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrInvalidInput),
		errors.Is(err, entities.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
