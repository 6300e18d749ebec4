package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

func TestNotificationCreatePushesAfterInsert(t *testing.T) {
	store, users, pusher := &mockNotifications{}, &mockUsers{}, &mockPusher{}
	users.On("GetByID", mock.Anything, uint64(3)).Return(model.User{ID: 3, Username: "student1"}, nil)
	store.On("Create", mock.Anything, mock.AnythingOfType("*model.Notification")).Return(nil)
	pusher.On("Push", mock.Anything, uint64(3), mock.MatchedBy(func(n model.Notification) bool {
		return n.ID == 77 && n.Message == "Room change"
	})).Once()
	svc := NewNotificationService(store, users, pusher).WithClock(fixedClock)

	n, err := svc.Create(context.Background(), teacher, 3, "  Room change ")
	require.NoError(t, err)
	assert.Equal(t, uint64(77), n.ID)
	assert.Equal(t, testNow, n.CreatedAt)
	pusher.AssertExpectations(t)
}

func TestNotificationCreateRules(t *testing.T) {
	store, users, pusher := &mockNotifications{}, &mockUsers{}, &mockPusher{}
	users.On("GetByID", mock.Anything, uint64(404)).Return(model.User{}, repository.ErrNotFound)
	svc := NewNotificationService(store, users, pusher)

	var az *AuthorizationError
	_, err := svc.Create(context.Background(), rep, 3, "hi")
	require.ErrorAs(t, err, &az)

	var ve *ValidationError
	_, err = svc.Create(context.Background(), admin, 3, "   ")
	require.ErrorAs(t, err, &ve)

	var nf *NotFoundError
	_, err = svc.Create(context.Background(), admin, 404, "hi")
	require.ErrorAs(t, err, &nf)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationListScope(t *testing.T) {
	store := &mockNotifications{}
	store.On("List", mock.Anything, uint64(0), 50, 0).Return([]model.Notification{{ID: 1}, {ID: 2}}, nil)
	store.On("List", mock.Anything, teacher.ID, 50, 0).Return([]model.Notification{{ID: 2, UserID: teacher.ID}}, nil)
	svc := NewNotificationService(store, &mockUsers{}, nil)

	all, err := svc.List(context.Background(), admin, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// teachers read their own notifications too
	own, err := svc.List(context.Background(), teacher, 50, 0)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestNotificationMarkReadAndDeleteOwnership(t *testing.T) {
	store := &mockNotifications{}
	store.On("FindByID", mock.Anything, uint64(5)).Return(model.Notification{ID: 5, UserID: student.ID}, nil)
	store.On("FindByID", mock.Anything, uint64(6)).Return(model.Notification{}, repository.ErrNotFound)
	store.On("MarkRead", mock.Anything, uint64(5)).Return(nil).Once()
	store.On("Delete", mock.Anything, uint64(5)).Return(nil).Once()
	svc := NewNotificationService(store, &mockUsers{}, nil)
	ctx := context.Background()

	var az *AuthorizationError
	_, err := svc.MarkRead(ctx, rep, 5)
	require.ErrorAs(t, err, &az)
	require.ErrorAs(t, svc.Delete(ctx, rep, 5), &az)

	n, err := svc.MarkRead(ctx, student, 5)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NoError(t, svc.Delete(ctx, admin, 5))

	var nf *NotFoundError
	_, err = svc.MarkRead(ctx, student, 6)
	require.ErrorAs(t, err, &nf)
	store.AssertExpectations(t)
}
