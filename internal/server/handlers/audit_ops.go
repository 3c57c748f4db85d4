package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/audit"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

type auditRequest struct {
	Action string `json:"action"`

	ContentID string `json:"content_id,omitempty"`
	Component string `json:"component,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// AuditOpsHandler handles audit trail queries via the "action" field:
// list_by_content, list_by_component. Moderator only.
func AuditOpsHandler(container *di.Container, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var svc *audit.Service
		if err := container.Resolve(&svc); err != nil {
			httputil.WriteJSONError(w, log, http.StatusInternalServerError, "internal error", err)
			return
		}
		var req auditRequest
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		ctx := r.Context()
		if !auth.IsModerator(auth.FromContext(ctx)) {
			httputil.WriteServiceError(w, log, errors.Authorization("the audit trail requires the moderator role"))
			return
		}
		switch req.Action {
		case "list_by_content":
			entries, err := svc.ListByContent(ctx, req.ContentID, req.Limit)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{"entries": entries})
		case "list_by_component":
			entries, err := svc.ListByComponent(ctx, req.Component, req.Limit)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{"entries": entries})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action: "+req.Action, nil)
		}
	}
}
