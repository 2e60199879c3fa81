package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// ReportHandler serves score reports, reading through the cache to the store.
type ReportHandler struct {
	cache  domain.ReportCache
	store  domain.ReportStore
	logger *slog.Logger
}

// NewReportHandler creates a ReportHandler. Either cache or store may be nil
// when the corresponding backend is not configured.
func NewReportHandler(cache domain.ReportCache, store domain.ReportStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		cache:  cache,
		store:  store,
		logger: logHandler(logger, "report"),
	}
}

// GetReport returns the most recent score report for a strategy. The cache is
// consulted first; on a miss the persistent store is queried.
// GET /api/reports/{strategy}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("strategy")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing strategy name")
		return
	}

	if h.cache != nil {
		report, err := h.cache.GetReport(r.Context(), name)
		if err == nil {
			writeJSON(w, http.StatusOK, report)
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "report cache read failed",
				slog.String("strategy", name),
				slog.String("error", err.Error()),
			)
		}
	}

	if h.store == nil {
		writeError(w, http.StatusNotFound, "no report available for "+name)
		return
	}

	report, err := h.store.GetLatest(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no report available for "+name)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "report store read failed",
			slog.String("strategy", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
