package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/pkg/apperr"
)

var (
	superAdmin = Actor{ID: "root", Role: model.RoleSuperAdmin}
	admin      = Actor{ID: "adm", Role: model.RoleAdmin}
)

func newUserService(t *testing.T) (*UserService, *fakeMail) {
	t.Helper()
	mail := &fakeMail{}
	svc := NewUserService(openTestStore(t), mail, nil)
	svc.now = clock()
	return svc, mail
}

func TestUserService_CreateSendsInvite(t *testing.T) {
	svc, mail := newUserService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, &model.CreateUserRequest{Name: "Sam", Email: "Sam@Example.com", Role: model.RoleUser}, admin)
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", u.Email)
	assert.True(t, u.MustChangePassword)

	invite := mail.last()
	assert.Equal(t, model.MailKindInvite, invite.Kind)
	assert.Equal(t, u.ID, invite.UserID)
	assert.NotEmpty(t, invite.Token)

	stored, err := svc.store.GetUserByResetTokenHash(ctx, auth.HashToken(invite.Token))
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
	assert.NotEqual(t, invite.Token, stored.ResetTokenHash)
}

func TestUserService_CreateRollsBackWhenQueueFails(t *testing.T) {
	svc, mail := newUserService(t)
	mail.err = errQueueDown
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateUserRequest{Name: "Sam", Email: "sam@example.com", Role: model.RoleUser}, admin)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))

	_, err = svc.store.GetUserByEmail(ctx, "sam@example.com")
	assert.Error(t, err)
}

func TestUserService_ConcurrentInvitesConflict(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, &model.CreateUserRequest{Name: "Sam", Email: "sam@example.com", Role: model.RoleUser}, admin)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), err.Error())
	}
	assert.Equal(t, 1, created)
}

func TestUserService_CreateRules(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateUserRequest{Name: "A", Email: "a@example.com", Role: model.RoleAdmin}, admin)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Create(ctx, &model.CreateUserRequest{Name: "A", Email: "a@example.com", Role: model.RoleAdmin}, superAdmin)
	require.NoError(t, err)

	_, err = svc.Create(ctx, &model.CreateUserRequest{Name: "A2", Email: "A@example.com", Role: model.RoleUser}, superAdmin)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Create(ctx, &model.CreateUserRequest{Name: "U", Email: "u@example.com", Role: model.RoleUser}, Actor{ID: "x", Role: model.RoleUser})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUserService_UpdateAndDelete(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	boss, err := svc.Create(ctx, &model.CreateUserRequest{Name: "Boss", Email: "boss@example.com", Role: model.RoleAdmin}, superAdmin)
	require.NoError(t, err)
	worker, err := svc.Create(ctx, &model.CreateUserRequest{Name: "Worker", Email: "worker@example.com", Role: model.RoleUser}, superAdmin)
	require.NoError(t, err)

	bossActor := Actor{ID: boss.ID, Role: model.RoleAdmin}

	updated, err := svc.Update(ctx, worker.ID, &model.UpdateUserRequest{Name: str("Worker Bee")}, bossActor)
	require.NoError(t, err)
	assert.Equal(t, "Worker Bee", updated.Name)

	promote := model.RoleAdmin
	_, err = svc.Update(ctx, worker.ID, &model.UpdateUserRequest{Role: &promote}, bossActor)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Update(ctx, worker.ID, &model.UpdateUserRequest{Role: &promote}, superAdmin)
	require.NoError(t, err)

	demote := model.RoleUser
	_, err = svc.Update(ctx, boss.ID, &model.UpdateUserRequest{Role: &demote}, bossActor)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.Delete(ctx, worker.ID, bossActor)))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.Delete(ctx, boss.ID, bossActor)))
	require.NoError(t, svc.Delete(ctx, worker.ID, superAdmin))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.Delete(ctx, worker.ID, superAdmin)))

	page, err := svc.List(ctx, &model.UserListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestUserService_Bootstrap(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "", "", ""))
	assert.Error(t, svc.Bootstrap(ctx, "Root", "root@example.com", "short"))

	require.NoError(t, svc.Bootstrap(ctx, "Root", "Root@Example.com", "correct-horse"))
	require.NoError(t, svc.Bootstrap(ctx, "Root", "root@example.com", "ignored"))

	page, err := svc.List(ctx, &model.UserListQuery{Role: string(model.RoleSuperAdmin)})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "Root", page.Users[0].Name)
}
