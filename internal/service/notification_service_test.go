package service

import (
	"context"
	"errors"
	"testing"

	"miscompras/internal/apierror"
	"miscompras/internal/model"
	"miscompras/internal/testutil"
	"miscompras/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	jobs []worker.EmailJob
	err  error
}

func (q *recordingQueue) EnqueueEmail(_ context.Context, job worker.EmailJob) error {
	q.jobs = append(q.jobs, job)
	return q.err
}

func TestNotifyRoles_InsertsAndEnqueues(t *testing.T) {
	e := newEnv(t)
	leader := testutil.CreateUser(t, e.db, model.RoleLeader, "lider@museo.local")
	queue := &recordingQueue{}
	svc := NewNotificationService(e.store.Users, e.store.Notifications, queue, "https://compras.museo.local")
	reqID := uuid.New()

	svc.NotifyRoles(context.Background(), []string{model.RoleAdmin, model.RoleLeader}, &e.admin.ID, NotificationDraft{
		Title: "Hola", Message: "Mensaje", RequirementID: &reqID,
	})

	assert.EqualValues(t, 0, e.count(t, &model.Notification{}, "user_id = ?", e.admin.ID), "excluded")
	var n model.Notification
	require.NoError(t, e.db.Where("user_id = ?", leader.ID).First(&n).Error)
	assert.Equal(t, model.NotificationInfo, n.Type)
	require.NotNil(t, n.Link)
	assert.Equal(t, "/requirements/"+reqID.String(), *n.Link)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, leader.Email, queue.jobs[0].To)
	assert.Contains(t, queue.jobs[0].Text, "https://compras.museo.local/requirements/"+reqID.String())
}

func TestNotify_EnqueueFailureIsSwallowed(t *testing.T) {
	e := newEnv(t)
	queue := &recordingQueue{err: errors.New("redis down")}
	svc := NewNotificationService(e.store.Users, e.store.Notifications, queue, "")

	svc.NotifyUsers(context.Background(), []uuid.UUID{e.user.ID, e.user.ID, uuid.New()}, NotificationDraft{Title: "t", Message: "m"})

	assert.EqualValues(t, 1, e.count(t, &model.Notification{}, "user_id = ?", e.user.ID))
	assert.Len(t, queue.jobs, 1)
}

func TestMarkRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.notifier.NotifyUsers(ctx, []uuid.UUID{e.user.ID}, NotificationDraft{Title: "a", Message: "a"})
	e.notifier.NotifyUsers(ctx, []uuid.UUID{e.user.ID}, NotificationDraft{Title: "b", Message: "b"})

	mine, err := e.notifier.ListMine(ctx, e.user.ID, true)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	err = e.notifier.MarkRead(ctx, e.admin.ID, mine[0].ID)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err), "not the owner")

	require.NoError(t, e.notifier.MarkRead(ctx, e.user.ID, mine[0].ID))
	unread, err := e.notifier.ListMine(ctx, e.user.ID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	n, err := e.notifier.MarkAllRead(ctx, e.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
