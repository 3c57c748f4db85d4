package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/scoring"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

type scoringRequest struct {
	Action string `json:"action"`

	Text  string `json:"text,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// ScoringOpsHandler handles scoring actions via the "action" field: analyze
// (ad-hoc, moderator), run_sweep (moderator), thresholds.
func ScoringOpsHandler(container *di.Container, log *zap.Logger, sweepBatch int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var svc *scoring.Service
		if err := container.Resolve(&svc); err != nil {
			httputil.WriteJSONError(w, log, http.StatusInternalServerError, "internal error", err)
			return
		}
		var req scoringRequest
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		ctx := r.Context()
		if !auth.IsModerator(auth.FromContext(ctx)) {
			httputil.WriteServiceError(w, log, errors.Authorization("scoring operations require the moderator role"))
			return
		}
		switch req.Action {
		case "analyze":
			analysis, err := svc.AnalyzeContent(ctx, "", req.Text)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, analysis)
		case "run_sweep":
			limit := req.Limit
			if limit <= 0 {
				limit = sweepBatch
			}
			scored, err := svc.BulkAnalyze(ctx, limit, req.Force)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]int{"scored": scored})
		case "thresholds":
			httputil.WriteJSONResponse(w, log, svc.Analyzer().Thresholds())
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action: "+req.Action, nil)
		}
	}
}
