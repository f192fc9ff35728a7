package service

import (
	"context"
	"testing"

	"miscompras/internal/apierror"
	"miscompras/internal/config"
	"miscompras/internal/dto"
	"miscompras/internal/model"
	"miscompras/internal/repository"
	"miscompras/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) (AuthService, *repository.Store) {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1, JWTRefreshHours: 2}
	return NewAuthService(store.Users, cfg), store
}

func seedLogin(t *testing.T, store *repository.Store, role string) model.User {
	t.Helper()
	hash, err := HashPassword("clave-segura")
	require.NoError(t, err)
	u := model.User{Email: "ana@museo.local", Name: "Ana", PasswordHash: hash, Role: role, Active: true}
	require.NoError(t, store.Users.Create(context.Background(), &u))
	return u
}

func claimsOf(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	return parsed.Claims.(jwt.MapClaims)
}

func TestLogin_Success(t *testing.T) {
	svc, store := newAuth(t)
	u := seedLogin(t, store, model.RoleLeader)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ANA@museo.local", Password: "clave-segura"})
	require.NoError(t, err)

	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, u.ID.String(), resp.User.ID)

	c := claimsOf(t, resp.AccessToken)
	assert.Equal(t, TokenAccess, c["typ"])
	assert.Equal(t, model.RoleLeader, c["role"])
	assert.Equal(t, TokenRefresh, claimsOf(t, resp.RefreshToken)["typ"])
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store := newAuth(t)
	seedLogin(t, store, model.RoleUser)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ana@museo.local", Password: "otra"})
	assert.Equal(t, apierror.KindUnauthenticated, apierror.KindOf(err))

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "nadie@museo.local", Password: "x"})
	assert.Equal(t, apierror.KindUnauthenticated, apierror.KindOf(err))
}

func TestRefresh(t *testing.T) {
	svc, store := newAuth(t)
	seedLogin(t, store, model.RoleUser)
	login, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ana@museo.local", Password: "clave-segura"})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Refresh(context.Background(), login.AccessToken)
	assert.Equal(t, apierror.KindUnauthenticated, apierror.KindOf(err), "access tokens cannot refresh")

	_, err = svc.Refresh(context.Background(), "garbage")
	assert.Equal(t, apierror.KindUnauthenticated, apierror.KindOf(err))
}

func TestCreateUser(t *testing.T) {
	svc, store := newAuth(t)
	admin := seedLogin(t, store, model.RoleAdmin)
	req := dto.CreateUserRequest{Email: "Nuevo@Museo.local", Name: "Nuevo", Password: "12345678", Role: model.RoleCoordinator}

	_, err := svc.CreateUser(context.Background(), Actor{ID: admin.ID, Role: model.RoleUser}, req)
	assert.Equal(t, apierror.KindForbidden, apierror.KindOf(err))

	resp, err := svc.CreateUser(context.Background(), actorOf(admin), req)
	require.NoError(t, err)
	assert.Equal(t, "nuevo@museo.local", resp.Email)
	assert.True(t, resp.Active)

	_, err = svc.CreateUser(context.Background(), actorOf(admin), req)
	assert.Equal(t, apierror.KindInvalidInput, apierror.KindOf(err))

	users, err := svc.ListUsers(context.Background(), actorOf(admin))
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
