package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// RunHandler serves per-run artifacts from the trade store.
type RunHandler struct {
	trades domain.TradeStore
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler over the given trade store.
func NewRunHandler(trades domain.TradeStore, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		trades: trades,
		logger: logHandler(logger, "run"),
	}
}

// ListTrades returns the committed trades of a run in chronological order.
// GET /api/runs/{id}/trades
func (h *RunHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	if h.trades == nil {
		writeError(w, http.StatusNotFound, "trade store not configured")
		return
	}

	trades, err := h.trades.ListByRun(r.Context(), runID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "trade list failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"trades": trades,
	})
}
