package moderation

import (
	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

// transitions is the full lifecycle table. Anything absent here is an invalid
// transition. rejected has no outgoing edges: content leaves that state only
// through an approved appeal, which uses the appeal_resolved action.
var transitions = map[models.ContentStatus]map[models.ModAction]models.ContentStatus{
	models.StatusPending: {
		models.ActionApprove:  models.StatusApproved,
		models.ActionReject:   models.StatusRejected,
		models.ActionFlag:     models.StatusFlagged,
		models.ActionAutoFlag: models.StatusFlagged,
	},
	models.StatusApproved: {
		models.ActionApprove:  models.StatusApproved,
		models.ActionReject:   models.StatusRejected,
		models.ActionFlag:     models.StatusFlagged,
		models.ActionAutoFlag: models.StatusFlagged,
	},
	models.StatusFlagged: {
		models.ActionApprove: models.StatusApproved,
		models.ActionReject:  models.StatusRejected,
	},
	models.StatusRejected: {
		models.ActionAppealResolve: models.StatusApproved,
	},
}

// Next returns the state reached by applying action in state from, or a
// conflict error when the table has no such edge.
func Next(from models.ContentStatus, action models.ModAction) (models.ContentStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", errors.Conflict("cannot " + string(action) + " content in state " + string(from))
}
