package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/notification"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

type notificationRequest struct {
	Action string `json:"action"`

	NotificationID string                 `json:"notification_id,omitempty"`
	UnreadOnly     bool                   `json:"unread_only,omitempty"`
	Limit          int                    `json:"limit,omitempty"`
	Offset         int                    `json:"offset,omitempty"`
	RecipientID    string                 `json:"recipient_id,omitempty"`
	Type           string                 `json:"type,omitempty"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
}

// NotificationOpsHandler handles a recipient's own notifications via the
// "action" field: list, mark_read, unread_count. The send action is
// moderator-only and targets an arbitrary recipient.
func NotificationOpsHandler(container *di.Container, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var svc *notification.Service
		if err := container.Resolve(&svc); err != nil {
			httputil.WriteJSONError(w, log, http.StatusInternalServerError, "internal error", err)
			return
		}
		var req notificationRequest
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		ctx := r.Context()
		subject := auth.FromContext(ctx).Subject
		if subject == "" {
			httputil.WriteServiceError(w, log, errors.Authorization("notifications require a signed-in user"))
			return
		}
		switch req.Action {
		case "send":
			if !auth.IsModerator(auth.FromContext(ctx)) {
				httputil.WriteServiceError(w, log, errors.Authorization("sending notifications requires the moderator role"))
				return
			}
			if err := svc.Send(ctx, req.RecipientID, models.NotificationType(req.Type), req.Payload); err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]bool{"sent": true})
		case "list":
			notices, err := svc.List(ctx, subject, req.UnreadOnly, req.Limit, req.Offset)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{"notifications": notices})
		case "mark_read":
			if err := svc.MarkRead(ctx, req.NotificationID, subject); err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]bool{"read": true})
		case "unread_count":
			count, err := svc.UnreadCount(ctx, subject)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]int{"unread": count})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action: "+req.Action, nil)
		}
	}
}
