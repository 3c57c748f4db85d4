package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/appeal"
	"github.com/campusvoice/contenttrust/pkg/di"
)

type appealRequest struct {
	Action string `json:"action"`

	ActionID   string `json:"action_id,omitempty"`
	AppealID   string `json:"appeal_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// AppealOpsHandler handles appeal actions via the "action" field: file,
// resolve, get, list_mine.
func AppealOpsHandler(container *di.Container, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var svc *appeal.Service
		if err := container.Resolve(&svc); err != nil {
			httputil.WriteJSONError(w, log, http.StatusInternalServerError, "internal error", err)
			return
		}
		var req appealRequest
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		ctx := r.Context()
		switch req.Action {
		case "file":
			a, err := svc.File(ctx, req.ActionID, req.Reason)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, a)
		case "resolve":
			a, err := svc.Resolve(ctx, req.AppealID, models.AppealDecision(req.Decision), req.Resolution)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, a)
		case "get":
			a, err := svc.Get(ctx, req.AppealID)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, a)
		case "list_mine":
			appeals, err := svc.ListMine(ctx, req.Limit, req.Offset)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{"appeals": appeals})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action: "+req.Action, nil)
		}
	}
}
