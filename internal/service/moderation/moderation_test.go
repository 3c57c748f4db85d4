package moderation

import (
	"context"
	"sync"
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
	mu          sync.Mutex
	items       map[string]*models.ContentItem
	actions     []*models.ModerationAction
	userActions []*models.ModerationAction
	dismissed   map[string]int
	failIDs     map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		items:     make(map[string]*models.ContentItem),
		dismissed: make(map[string]int),
		failIDs:   make(map[string]bool),
	}
}

func (m *memRepo) addItem(id string, status models.ContentStatus) *models.ContentItem {
	item := &models.ContentItem{ID: id, AuthorID: "author-" + id, Body: "body", Status: status}
	m.items[id] = item
	return item
}

func (m *memRepo) InsertContent(_ context.Context, item *models.ContentItem, submit *models.ModerationAction) error {
	m.items[item.ID] = item
	m.actions = append(m.actions, submit)
	return nil
}

func (m *memRepo) GetContent(_ context.Context, contentID string) (*models.ContentItem, error) {
	item, ok := m.items[contentID]
	if !ok {
		return nil, errors.NotFound("content not found")
	}
	return item, nil
}

func (m *memRepo) Transition(_ context.Context, action *models.ModerationAction) (*models.Aggregate, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[action.TargetID] {
		return nil, "", false, errors.Transient("store down", nil)
	}
	item, ok := m.items[action.TargetID]
	if !ok {
		return nil, "", false, errors.NotFound("content not found: " + action.TargetID)
	}
	agg := &models.Aggregate{ContentID: item.ID, Status: item.Status, IsFlagged: item.IsFlagged}
	if action.Action == models.ActionAutoFlag && item.Status == models.StatusFlagged {
		return agg, item.AuthorID, false, nil
	}
	to, err := Next(item.Status, action.Action)
	if err != nil {
		return nil, "", false, err
	}
	item.Status = to
	item.IsFlagged = to == models.StatusFlagged
	if to == models.StatusApproved {
		m.dismissed[item.ID]++
	}
	m.actions = append(m.actions, action)
	agg.Status = to
	agg.IsFlagged = item.IsFlagged
	return agg, item.AuthorID, true, nil
}

func (m *memRepo) RecordAction(_ context.Context, action *models.ModerationAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userActions = append(m.userActions, action)
	return nil
}

func (m *memRepo) GetAction(_ context.Context, actionID string) (*models.ModerationAction, error) {
	for _, a := range m.actions {
		if a.ID == actionID {
			return a, nil
		}
	}
	for _, a := range m.userActions {
		if a.ID == actionID {
			return a, nil
		}
	}
	return nil, errors.NotFound("moderation action not found")
}

func (m *memRepo) ListByStatus(_ context.Context, status models.ContentStatus, limit, _ int) ([]models.ContentItem, error) {
	var out []models.ContentItem
	for _, item := range m.items {
		if item.Status == status && len(out) < limit {
			out = append(out, *item)
		}
	}
	return out, nil
}

type fakeScorer struct {
	byBody map[string]models.Analysis
	err    error
}

func (f *fakeScorer) AnalyzeContent(_ context.Context, _, text string) (models.Analysis, error) {
	if f.err != nil {
		return models.Analysis{}, f.err
	}
	if a, ok := f.byBody[text]; ok {
		return a, nil
	}
	return models.Analysis{QualityScore: 0.8, CleanedText: text}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string // recipient/type
}

func (f *fakeNotifier) Send(_ context.Context, recipientID string, ntype models.NotificationType, _ map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recipientID+"/"+string(ntype))
	return nil
}

func newModeration(t *testing.T, repo *memRepo, scorer *fakeScorer, notifier *fakeNotifier, cfg Config) *Service {
	t.Helper()
	return NewService(zaptest.NewLogger(t), repo, scorer, notifier, nil, cfg)
}

func modCtx() context.Context {
	return auth.NewContext(context.Background(), &auth.Context{
		Subject: "mod-1",
		Roles:   []string{auth.RoleModerator},
	})
}

func TestNextTransitionTable(t *testing.T) {
	tests := []struct {
		from   models.ContentStatus
		action models.ModAction
		to     models.ContentStatus
		ok     bool
	}{
		{models.StatusPending, models.ActionApprove, models.StatusApproved, true},
		{models.StatusPending, models.ActionReject, models.StatusRejected, true},
		{models.StatusPending, models.ActionFlag, models.StatusFlagged, true},
		{models.StatusPending, models.ActionAutoFlag, models.StatusFlagged, true},
		{models.StatusApproved, models.ActionReject, models.StatusRejected, true},
		{models.StatusApproved, models.ActionFlag, models.StatusFlagged, true},
		{models.StatusFlagged, models.ActionApprove, models.StatusApproved, true},
		{models.StatusFlagged, models.ActionReject, models.StatusRejected, true},
		{models.StatusRejected, models.ActionAppealResolve, models.StatusApproved, true},
		{models.StatusRejected, models.ActionApprove, "", false},
		{models.StatusRejected, models.ActionFlag, "", false},
		{models.StatusFlagged, models.ActionFlag, "", false},
		{models.StatusPending, models.ActionAppealResolve, "", false},
	}
	for _, tt := range tests {
		to, err := Next(tt.from, tt.action)
		if tt.ok {
			require.NoError(t, err, "%s + %s", tt.from, tt.action)
			assert.Equal(t, tt.to, to)
		} else {
			assert.True(t, errors.IsKind(err, errors.KindConflict), "%s + %s", tt.from, tt.action)
		}
	}
}

func TestSubmitContentPending(t *testing.T) {
	repo := newMemRepo()
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	item, err := svc.SubmitContent(context.Background(), "author-1", "A thoughtful review of the course")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, item.Status)
	require.NotNil(t, item.Analysis)
	require.Len(t, repo.actions, 1)
	assert.Equal(t, models.ActionSubmit, repo.actions[0].Action)
}

func TestSubmitContentAutoFlag(t *testing.T) {
	repo := newMemRepo()
	scorer := &fakeScorer{byBody: map[string]models.Analysis{
		"spammy body": {AutoFlag: true, IsSpam: true, FlagReasons: []string{"spam_threshold_exceeded"}},
	}}
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, scorer, notifier, Config{AutoApprovePassing: true})

	item, err := svc.SubmitContent(context.Background(), "author-1", "spammy body")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFlagged, item.Status)
	assert.True(t, item.IsFlagged)
	// auto-flag is not author-visible
	assert.Empty(t, notifier.sent)
}

func TestSubmitContentAutoApprove(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, &fakeScorer{}, notifier, Config{AutoApprovePassing: true})

	item, err := svc.SubmitContent(context.Background(), "author-1", "Great course with clear lectures")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, item.Status)
	assert.Equal(t, []string{"author-1/content_approved"}, notifier.sent)
}

func TestSubmitContentScoringFailureLeavesPending(t *testing.T) {
	repo := newMemRepo()
	scorer := &fakeScorer{err: errors.Transient("engine down", nil)}
	svc := newModeration(t, repo, scorer, &fakeNotifier{}, Config{AutoApprovePassing: true})

	item, err := svc.SubmitContent(context.Background(), "author-1", "some body")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Nil(t, item.Analysis)
}

func TestApproveRequiresModerator(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("c1", models.StatusPending)
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	_, err := svc.Approve(context.Background(), "c1", "")
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))
}

func TestApproveNotifiesAuthor(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("c1", models.StatusFlagged)
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, &fakeScorer{}, notifier, Config{})

	agg, err := svc.Approve(modCtx(), "c1", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, agg.Status)
	assert.False(t, agg.IsFlagged)
	assert.Equal(t, 1, repo.dismissed["c1"])
	assert.Equal(t, []string{"author-c1/content_approved"}, notifier.sent)
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("c1", models.StatusApproved)
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	err := svc.Reject(modCtx(), "c1", "mod-1", "   ")
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestRejectIgnoresClaimedSystemActor(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("c1", models.StatusApproved)
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	// a token whose subject happens to be "system" carries no authority
	ctx := auth.NewContext(context.Background(), &auth.Context{Subject: models.SystemActor})
	err := svc.Reject(ctx, "c1", models.SystemActor, "spam")
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))
	assert.Equal(t, models.StatusApproved, repo.items["c1"].Status)
}

func TestRecordAppealOutcome(t *testing.T) {
	repo := newMemRepo()
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	appealed := &models.ModerationAction{
		ID: "warn-1", TargetKind: models.TargetUser, TargetID: "user-1",
		ActorID: "mod-1", Action: models.ActionWarn, Reason: "tone",
	}
	action, err := svc.RecordAppealOutcome(context.Background(), appealed, "mod-2", "warning stands")
	require.NoError(t, err)
	assert.Equal(t, models.ActionAppealResolve, action.Action)
	assert.Equal(t, models.TargetUser, action.TargetKind)
	assert.Equal(t, "user-1", action.TargetID)
	assert.Equal(t, "mod-2", action.ActorID)

	require.Len(t, repo.userActions, 1)
	assert.Equal(t, models.ActionAppealResolve, repo.userActions[0].Action)
}

func TestRejectedRecoversOnlyThroughAppeal(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("c1", models.StatusRejected)
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, &fakeScorer{}, notifier, Config{})

	// a plain approve is refused
	_, err := svc.Approve(modCtx(), "c1", "")
	assert.True(t, errors.IsKind(err, errors.KindConflict))

	// the appeal reversal path succeeds
	agg, err := svc.ReverseRejection(modCtx(), "c1", "mod-1", "appeal approved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, agg.Status)
}

func TestForceFlagIdempotent(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("c1", models.StatusApproved)
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})
	ctx := context.Background()

	require.NoError(t, svc.ForceFlag(ctx, "c1", "threshold"))
	actions := len(repo.actions)
	require.NoError(t, svc.ForceFlag(ctx, "c1", "threshold again"))
	assert.Len(t, repo.actions, actions) // no second action row
	assert.Equal(t, models.StatusFlagged, repo.items["c1"].Status)
}

func TestWarnUserNotifies(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, &fakeScorer{}, notifier, Config{})

	action, err := svc.WarnUser(modCtx(), "user-9", "repeated spam")
	require.NoError(t, err)
	assert.Equal(t, models.TargetUser, action.TargetKind)
	assert.Equal(t, []string{"user-9/warning"}, notifier.sent)
}

func TestBanUserRecordsDuration(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, &fakeScorer{}, notifier, Config{})

	d := 72 * time.Hour
	action, err := svc.BanUser(modCtx(), "user-9", "harassment", &d)
	require.NoError(t, err)
	require.NotNil(t, action.Duration)
	assert.Equal(t, d, *action.Duration)
	// bans are enforced, not announced
	assert.Empty(t, notifier.sent)
}

func TestBulkApplyPartialFailure(t *testing.T) {
	repo := newMemRepo()
	repo.addItem("a", models.StatusPending)
	repo.addItem("c", models.StatusPending)
	// "b" does not exist
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	result, err := svc.BulkApply(modCtx(), BulkRequest{
		Action: models.ActionApprove,
		IDs:    []string{"a", "b", "c"},
	}, BulkConfig{Workers: 4, MaxItems: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.FailedItems, 1)
	assert.Equal(t, "b", result.FailedItems[0].ID)
	assert.Equal(t, models.StatusApproved, repo.items["a"].Status)
	assert.Equal(t, models.StatusApproved, repo.items["c"].Status)
}

func TestBulkApplyNeverAborts(t *testing.T) {
	repo := newMemRepo()
	for _, id := range []string{"a", "b", "c", "d"} {
		repo.addItem(id, models.StatusPending)
	}
	repo.failIDs["a"] = true
	repo.failIDs["b"] = true
	svc := newModeration(t, repo, &fakeScorer{}, &fakeNotifier{}, Config{})

	result, err := svc.BulkApply(modCtx(), BulkRequest{
		Action: models.ActionReject,
		IDs:    []string{"a", "b", "c", "d"},
		Reason: "cleanup",
	}, BulkConfig{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailedCount)
	assert.Equal(t, result.TotalCount, result.SuccessCount+result.FailedCount)
}

func TestBulkApplyValidation(t *testing.T) {
	svc := newModeration(t, newMemRepo(), &fakeScorer{}, &fakeNotifier{}, Config{})

	_, err := svc.BulkApply(context.Background(), BulkRequest{Action: models.ActionApprove, IDs: []string{"a"}}, BulkConfig{})
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))

	_, err = svc.BulkApply(modCtx(), BulkRequest{Action: models.ActionSubmit, IDs: []string{"a"}}, BulkConfig{})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.BulkApply(modCtx(), BulkRequest{Action: models.ActionApprove}, BulkConfig{})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.BulkApply(modCtx(), BulkRequest{
		Action: models.ActionApprove,
		IDs:    []string{"a", "b", "c"},
	}, BulkConfig{MaxItems: 2})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.BulkApply(modCtx(), BulkRequest{Action: models.ActionReject, IDs: []string{"a"}}, BulkConfig{})
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestBulkApplyWarnUsers(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	svc := newModeration(t, repo, &fakeScorer{}, notifier, Config{})

	result, err := svc.BulkApply(modCtx(), BulkRequest{
		Action: models.ActionWarn,
		IDs:    []string{"u1", "u2"},
		Reason: "policy violation",
	}, BulkConfig{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Len(t, repo.userActions, 2)
}
