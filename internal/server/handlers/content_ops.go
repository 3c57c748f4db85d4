// Package handlers exposes each pipeline domain as a composable ops endpoint:
// one POST route per domain, dispatching on the "action" field of the request
// body. Unknown actions fail fast with a 400.
package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/moderation"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

type contentRequest struct {
	Action string `json:"action"`

	ContentID string `json:"content_id,omitempty"`
	Body      string `json:"body,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`

	// bulk fields
	BulkAction string   `json:"bulk_action,omitempty"`
	IDs        []string `json:"ids,omitempty"`
	// user action fields
	UserID          string `json:"user_id,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

// ContentOpsHandler handles content lifecycle actions via the "action" field:
// submit, get, approve, reject, flag, warn_user, ban_user, bulk, queue.
func ContentOpsHandler(container *di.Container, log *zap.Logger, bulkCfg moderation.BulkConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var svc *moderation.Service
		if err := container.Resolve(&svc); err != nil {
			httputil.WriteJSONError(w, log, http.StatusInternalServerError, "internal error", err)
			return
		}
		var req contentRequest
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		ctx := r.Context()
		switch req.Action {
		case "submit":
			item, err := svc.SubmitContent(ctx, auth.FromContext(ctx).Subject, req.Body)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, item)
		case "get":
			item, err := svc.GetContent(ctx, req.ContentID)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, item)
		case "approve":
			agg, err := svc.Approve(ctx, req.ContentID, req.Reason)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, agg)
		case "reject":
			if err := svc.Reject(ctx, req.ContentID, auth.FromContext(ctx).Subject, req.Reason); err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]string{"status": string(models.StatusRejected)})
		case "flag":
			agg, err := svc.Flag(ctx, req.ContentID, req.Reason)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, agg)
		case "warn_user":
			action, err := svc.WarnUser(ctx, req.UserID, req.Reason)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, action)
		case "ban_user":
			var duration *time.Duration
			if req.DurationSeconds > 0 {
				d := time.Duration(req.DurationSeconds) * time.Second
				duration = &d
			}
			action, err := svc.BanUser(ctx, req.UserID, req.Reason, duration)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, action)
		case "bulk":
			// the bulk verb goes through the closed action set; anything
			// unrecognized is refused before any item is touched
			bulkAction, ok := models.ParseModAction(req.BulkAction)
			if !ok {
				httputil.WriteServiceError(w, log, errors.Validation("unknown bulk_action: "+req.BulkAction))
				return
			}
			var duration *time.Duration
			if req.DurationSeconds > 0 {
				d := time.Duration(req.DurationSeconds) * time.Second
				duration = &d
			}
			result, err := svc.BulkApply(ctx, moderation.BulkRequest{
				Action:   bulkAction,
				IDs:      req.IDs,
				Reason:   req.Reason,
				Duration: duration,
			}, bulkCfg)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, result)
		case "queue":
			items, err := svc.ListQueue(ctx, models.ContentStatus(req.Status), req.Limit, req.Offset)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{"items": items})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action: "+req.Action, nil)
		}
	}
}
