package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/dto"
	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

func newUserServiceForTest() (*UserService, *memStore) {
	store := newMemStore()
	return NewUserService(userRepoFake{store}, nil, zap.NewNop()), store
}

func TestUserServiceCreateNormalises(t *testing.T) {
	svc, _ := newUserServiceForTest()

	user, err := svc.Create(context.Background(), CreateUserRequest{
		ClerkID: "user_2abc",
		Name:    "  Asha Rao ",
		Email:   " Asha.Rao@Example.com",
		Role:    models.RoleStateAdmin,
		StateID: strPtr("Karnataka"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", user.Name)
	assert.Equal(t, "asha.rao@example.com", user.Email)
	assert.True(t, user.IsActive)
}

func TestUserServiceCreateConflicts(t *testing.T) {
	svc, _ := newUserServiceForTest()
	_, err := svc.Create(context.Background(), CreateUserRequest{ClerkID: "user_1", Name: "One", Email: "one@example.com", Role: models.RoleSiteOfficer})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserRequest{ClerkID: "user_1", Name: "Dup", Email: "dup@example.com", Role: models.RoleSiteOfficer})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "user with this clerk id already exists", appErrors.FromError(err).Message)

	_, err = svc.Create(context.Background(), CreateUserRequest{ClerkID: "user_2", Name: "Dup", Email: "ONE@example.com", Role: models.RoleSiteOfficer})
	require.Error(t, err)
	assert.Equal(t, "email already exists", appErrors.FromError(err).Message)

	_, err = svc.Create(context.Background(), CreateUserRequest{ClerkID: "user_3", Name: "Bad", Email: "bad", Role: "ADMIN"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceUpdateAndDelete(t *testing.T) {
	svc, store := newUserServiceForTest()
	user, err := svc.Create(context.Background(), CreateUserRequest{ClerkID: "user_1", Name: "One", Email: "one@example.com", Role: models.RoleSiteOfficer})
	require.NoError(t, err)

	role := models.RoleNationalAdmin
	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{Role: &role, Name: strPtr(" Uno ")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleNationalAdmin, updated.Role)
	assert.Equal(t, "Uno", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), user.ID))
	assert.False(t, store.users[user.ID].IsActive)

	_, err = svc.Update(context.Background(), "3f0c5a8e-4a55-4c55-9d8f-2f5a3ad1b001", UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "bad"), appErrors.ErrValidation)
}

func webhookEvent(t *testing.T, payload string) dto.WebhookEvent {
	t.Helper()
	var event dto.WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))
	return event
}

func TestUserServiceLifecycleEvents(t *testing.T) {
	svc, _ := newUserServiceForTest()
	ctx := context.Background()

	created := webhookEvent(t, `{"type":"user.created","data":{"id":"user_9","first_name":"Meera","last_name":"Iyer",
		"email_addresses":[{"email_address":"Meera@Example.com"}],"public_metadata":{"role":"STATE_ADMIN"}}}`)
	require.NoError(t, svc.HandleLifecycleEvent(ctx, created))

	user, err := svc.FindByClerkID(ctx, "user_9")
	require.NoError(t, err)
	assert.Equal(t, "Meera Iyer", user.Name)
	assert.Equal(t, "meera@example.com", user.Email)
	assert.Equal(t, models.RoleStateAdmin, user.Role)

	err = svc.HandleLifecycleEvent(ctx, created)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	updated := webhookEvent(t, `{"type":"user.updated","data":{"id":"user_9","first_name":"Meera","last_name":"Nair","public_metadata":{"role":"GOD"}}}`)
	require.NoError(t, svc.HandleLifecycleEvent(ctx, updated))
	user, err = svc.FindByClerkID(ctx, "user_9")
	require.NoError(t, err)
	assert.Equal(t, "Meera Nair", user.Name)
	assert.Equal(t, "meera@example.com", user.Email)
	assert.Equal(t, models.RoleStateAdmin, user.Role)

	deleted := webhookEvent(t, `{"type":"user.deleted","data":{"id":"user_9"}}`)
	require.NoError(t, svc.HandleLifecycleEvent(ctx, deleted))
	user, err = svc.FindByClerkID(ctx, "user_9")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestUserServiceLifecycleDefaults(t *testing.T) {
	svc, _ := newUserServiceForTest()
	ctx := context.Background()

	require.NoError(t, svc.HandleLifecycleEvent(ctx, webhookEvent(t, `{"type":"user.created","data":{"id":"USER_X"}}`)))
	user, err := svc.FindByClerkID(ctx, "USER_X")
	require.NoError(t, err)
	assert.Equal(t, UnknownUserName, user.Name)
	assert.Equal(t, PlaceholderEmail("USER_X"), user.Email)
	assert.Equal(t, "no-email+user_x@example.com", user.Email)
	assert.Equal(t, DefaultSyncedRole, user.Role)
}

func TestUserServiceLifecycleEdgeCases(t *testing.T) {
	svc, _ := newUserServiceForTest()
	ctx := context.Background()

	assert.NoError(t, svc.HandleLifecycleEvent(ctx, webhookEvent(t, `{"type":"session.created","data":{"id":"sess_1"}}`)))
	assert.NoError(t, svc.HandleLifecycleEvent(ctx, webhookEvent(t, `{"type":"user.deleted","data":{"id":"user_missing"}}`)))

	err := svc.HandleLifecycleEvent(ctx, webhookEvent(t, `{"type":"user.updated","data":{"id":"user_missing"}}`))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	err = svc.HandleLifecycleEvent(ctx, webhookEvent(t, `{"type":"user.created","data":{}}`))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
