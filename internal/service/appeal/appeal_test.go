package appeal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

type memRepo struct {
	appeals map[string]*models.Appeal
}

func newMemRepo() *memRepo {
	return &memRepo{appeals: make(map[string]*models.Appeal)}
}

func (m *memRepo) Insert(_ context.Context, a *models.Appeal) error {
	for _, existing := range m.appeals {
		if existing.ActionID == a.ActionID && existing.Status == models.AppealPending {
			return errors.Conflict("an appeal is already open for this action")
		}
	}
	cp := *a
	m.appeals[a.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, appealID string) (*models.Appeal, error) {
	a, ok := m.appeals[appealID]
	if !ok {
		return nil, errors.NotFound("appeal not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) Resolve(_ context.Context, appealID, resolverID, resolution string, status models.AppealStatus) (*models.Appeal, error) {
	a, ok := m.appeals[appealID]
	if !ok {
		return nil, errors.NotFound("appeal not found")
	}
	if a.Status != models.AppealPending {
		return nil, errors.Conflict("appeal already resolved")
	}
	now := time.Now().UTC()
	a.Status = status
	a.Resolution = resolution
	a.ResolvedByID = resolverID
	a.ResolvedAt = &now
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string, limit, _ int) ([]models.Appeal, error) {
	var out []models.Appeal
	for _, a := range m.appeals {
		if a.UserID == userID && len(out) < limit {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeModerator struct {
	actions  map[string]*models.ModerationAction
	content  map[string]*models.ContentItem
	reversed []string
	recorded []*models.ModerationAction
}

func newFakeModerator() *fakeModerator {
	return &fakeModerator{
		actions: make(map[string]*models.ModerationAction),
		content: make(map[string]*models.ContentItem),
	}
}

func (f *fakeModerator) addRejection(actionID, contentID, authorID string) {
	f.actions[actionID] = &models.ModerationAction{
		ID: actionID, TargetKind: models.TargetContent, TargetID: contentID,
		ActorID: "mod-1", Action: models.ActionReject, Reason: "policy violation",
	}
	f.content[contentID] = &models.ContentItem{ID: contentID, AuthorID: authorID, Status: models.StatusRejected}
}

func (f *fakeModerator) GetAction(_ context.Context, actionID string) (*models.ModerationAction, error) {
	a, ok := f.actions[actionID]
	if !ok {
		return nil, errors.NotFound("moderation action not found")
	}
	return a, nil
}

func (f *fakeModerator) GetContent(_ context.Context, contentID string) (*models.ContentItem, error) {
	item, ok := f.content[contentID]
	if !ok {
		return nil, errors.NotFound("content not found")
	}
	return item, nil
}

func (f *fakeModerator) ReverseRejection(_ context.Context, contentID, _, _ string) (*models.Aggregate, error) {
	item, ok := f.content[contentID]
	if !ok {
		return nil, errors.NotFound("content not found")
	}
	item.Status = models.StatusApproved
	f.reversed = append(f.reversed, contentID)
	return &models.Aggregate{ContentID: contentID, Status: models.StatusApproved}, nil
}

func (f *fakeModerator) RecordAppealOutcome(_ context.Context, appealed *models.ModerationAction, actorID, reason string) (*models.ModerationAction, error) {
	action := &models.ModerationAction{
		ID: "outcome-" + appealed.ID, TargetKind: appealed.TargetKind, TargetID: appealed.TargetID,
		ActorID: actorID, Action: models.ActionAppealResolve, Reason: reason,
	}
	f.recorded = append(f.recorded, action)
	return action, nil
}

type fakeNotifier struct {
	sent []string // recipient/type
}

func (f *fakeNotifier) Send(_ context.Context, recipientID string, ntype models.NotificationType, _ map[string]interface{}) error {
	f.sent = append(f.sent, recipientID+"/"+string(ntype))
	return nil
}

func newAppeal(t *testing.T, repo *memRepo, mod *fakeModerator, notifier *fakeNotifier) *Service {
	t.Helper()
	return NewService(zaptest.NewLogger(t), repo, mod, notifier)
}

func userCtx(subject string) context.Context {
	return auth.NewContext(context.Background(), &auth.Context{Subject: subject})
}

func modCtx() context.Context {
	return auth.NewContext(context.Background(), &auth.Context{
		Subject: "mod-1",
		Roles:   []string{auth.RoleModerator},
	})
}

func TestFileAppealRequiresSignIn(t *testing.T) {
	svc := newAppeal(t, newMemRepo(), newFakeModerator(), &fakeNotifier{})
	_, err := svc.File(context.Background(), "a1", "unfair")
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))
}

func TestFileAppealEligibility(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.actions["approve-1"] = &models.ModerationAction{
		ID: "approve-1", TargetKind: models.TargetContent, TargetID: "c1", Action: models.ActionApprove,
	}
	svc := newAppeal(t, repo, mod, &fakeNotifier{})

	_, err := svc.File(userCtx("author-1"), "approve-1", "why approved")
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.File(userCtx("author-1"), "missing", "gone")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	_, err = svc.File(userCtx("author-1"), "approve-1", "   ")
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestFileAppealOwnership(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.addRejection("reject-1", "c1", "author-1")
	svc := newAppeal(t, repo, mod, &fakeNotifier{})

	_, err := svc.File(userCtx("someone-else"), "reject-1", "unfair")
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))

	a, err := svc.File(userCtx("author-1"), "reject-1", "unfair")
	require.NoError(t, err)
	assert.Equal(t, models.AppealPending, a.Status)
}

func TestFileAppealOnePerAction(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.addRejection("reject-1", "c1", "author-1")
	svc := newAppeal(t, repo, mod, &fakeNotifier{})

	_, err := svc.File(userCtx("author-1"), "reject-1", "unfair")
	require.NoError(t, err)
	_, err = svc.File(userCtx("author-1"), "reject-1", "still unfair")
	assert.True(t, errors.IsKind(err, errors.KindConflict))
}

func TestResolveAppealApprovedReversesRejection(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.addRejection("reject-1", "c1", "author-1")
	notifier := &fakeNotifier{}
	svc := newAppeal(t, repo, mod, notifier)

	a, err := svc.File(userCtx("author-1"), "reject-1", "the review was factual")
	require.NoError(t, err)

	resolved, err := svc.Resolve(modCtx(), a.ID, models.DecisionApprove, "agreed on review")
	require.NoError(t, err)
	assert.Equal(t, models.AppealApproved, resolved.Status)
	assert.Equal(t, "mod-1", resolved.ResolvedByID)
	assert.Equal(t, []string{"c1"}, mod.reversed)
	assert.Equal(t, models.StatusApproved, mod.content["c1"].Status)
	// the reversing transition records the appeal_resolved action itself
	assert.Empty(t, mod.recorded)
	assert.Equal(t, []string{"author-1/appeal_resolved"}, notifier.sent)

	// the ruling is one-time
	_, err = svc.Resolve(modCtx(), a.ID, models.DecisionReject, "changed my mind")
	assert.True(t, errors.IsKind(err, errors.KindConflict))
	assert.Len(t, mod.reversed, 1)
}

func TestResolveAppealRejectedLeavesContent(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.addRejection("reject-1", "c1", "author-1")
	notifier := &fakeNotifier{}
	svc := newAppeal(t, repo, mod, notifier)

	a, err := svc.File(userCtx("author-1"), "reject-1", "unfair")
	require.NoError(t, err)

	resolved, err := svc.Resolve(modCtx(), a.ID, models.DecisionReject, "rejection stands")
	require.NoError(t, err)
	assert.Equal(t, models.AppealRejected, resolved.Status)
	assert.Empty(t, mod.reversed)
	assert.Equal(t, models.StatusRejected, mod.content["c1"].Status)
	assert.Equal(t, []string{"author-1/appeal_resolved"}, notifier.sent)

	// a rejected ruling still leaves its appeal_resolved action
	require.Len(t, mod.recorded, 1)
	assert.Equal(t, models.ActionAppealResolve, mod.recorded[0].Action)
	assert.Equal(t, "c1", mod.recorded[0].TargetID)
	assert.Equal(t, "mod-1", mod.recorded[0].ActorID)
}

func TestResolveAppealRequiresModerator(t *testing.T) {
	svc := newAppeal(t, newMemRepo(), newFakeModerator(), &fakeNotifier{})
	_, err := svc.Resolve(userCtx("author-1"), "a1", models.DecisionApprove, "")
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))
}

func TestResolveWarnAppealHasNothingToReverse(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.actions["warn-1"] = &models.ModerationAction{
		ID: "warn-1", TargetKind: models.TargetUser, TargetID: "user-1",
		ActorID: "mod-1", Action: models.ActionWarn, Reason: "tone",
	}
	svc := newAppeal(t, repo, mod, &fakeNotifier{})

	a, err := svc.File(userCtx("user-1"), "warn-1", "the warning was unwarranted")
	require.NoError(t, err)

	resolved, err := svc.Resolve(modCtx(), a.ID, models.DecisionApprove, "agreed")
	require.NoError(t, err)
	assert.Equal(t, models.AppealApproved, resolved.Status)
	assert.Empty(t, mod.reversed)

	// nothing to reverse, but the ruling is still recorded
	require.Len(t, mod.recorded, 1)
	assert.Equal(t, models.ActionAppealResolve, mod.recorded[0].Action)
	assert.Equal(t, models.TargetUser, mod.recorded[0].TargetKind)
	assert.Equal(t, "user-1", mod.recorded[0].TargetID)
}

func TestGetAppealVisibility(t *testing.T) {
	repo := newMemRepo()
	mod := newFakeModerator()
	mod.addRejection("reject-1", "c1", "author-1")
	svc := newAppeal(t, repo, mod, &fakeNotifier{})

	a, err := svc.File(userCtx("author-1"), "reject-1", "unfair")
	require.NoError(t, err)

	_, err = svc.Get(userCtx("author-1"), a.ID)
	require.NoError(t, err)
	_, err = svc.Get(modCtx(), a.ID)
	require.NoError(t, err)
	_, err = svc.Get(userCtx("stranger"), a.ID)
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))
}
