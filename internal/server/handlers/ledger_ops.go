package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/server/httputil"
	"github.com/campusvoice/contenttrust/internal/service/ledger"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

type ledgerRequest struct {
	Action string `json:"action"`

	ContentID string `json:"content_id,omitempty"`
	VoteType  string `json:"vote_type,omitempty"`
	FlagType  string `json:"flag_type,omitempty"`
	Reason    string `json:"reason,omitempty"`
	FlagID    string `json:"flag_id,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// LedgerOpsHandler handles vote and flag actions via the "action" field:
// submit_vote, remove_vote, submit_flag, resolve_flag, get_aggregate.
func LedgerOpsHandler(container *di.Container, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var svc *ledger.Service
		if err := container.Resolve(&svc); err != nil {
			httputil.WriteJSONError(w, log, http.StatusInternalServerError, "internal error", err)
			return
		}
		var req ledgerRequest
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		ctx := r.Context()
		subject := auth.FromContext(ctx).Subject
		switch req.Action {
		case "submit_vote":
			if subject == "" {
				httputil.WriteServiceError(w, log, errors.Authorization("voting requires a signed-in user"))
				return
			}
			result, agg, err := svc.SubmitVote(ctx, req.ContentID, subject, models.VoteType(req.VoteType))
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{
				"result":    string(result),
				"aggregate": agg,
			})
		case "remove_vote":
			if subject == "" {
				httputil.WriteServiceError(w, log, errors.Authorization("voting requires a signed-in user"))
				return
			}
			agg, err := svc.RemoveVote(ctx, req.ContentID, subject)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, agg)
		case "submit_flag":
			if subject == "" {
				httputil.WriteServiceError(w, log, errors.Authorization("flagging requires a signed-in user"))
				return
			}
			flag, agg, err := svc.SubmitFlag(ctx, req.ContentID, subject, models.FlagType(req.FlagType), req.Reason)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{
				"flag":      flag,
				"aggregate": agg,
			})
		case "resolve_flag":
			flag, err := svc.ResolveFlag(ctx, req.FlagID, models.FlagOutcome(req.Outcome), req.Notes)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, flag)
		case "get_aggregate":
			agg, err := svc.GetAggregate(ctx, req.ContentID)
			if err != nil {
				httputil.WriteServiceError(w, log, err)
				return
			}
			httputil.WriteJSONResponse(w, log, agg)
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action: "+req.Action, nil)
		}
	}
}
