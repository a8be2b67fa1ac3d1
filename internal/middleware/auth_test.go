package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmry/calmry-backend/internal/models"
	"github.com/calmry/calmry-backend/internal/services"
)

type fakeUserFinder struct {
	user *models.User
	err  error
}

func (f *fakeUserFinder) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	return &u, nil
}

func okHandler(t *testing.T, sawUser *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		require.True(t, ok)
		assert.Empty(t, user.Password)
		*sawUser = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMissingCookie(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	finder := &fakeUserFinder{err: services.ErrNotFound}

	var sawUser bool
	handler := Auth(tokens, finder)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, sawUser)
	assert.Contains(t, rec.Body.String(), "Authentication required")
}

func TestAuthInvalidToken(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	finder := &fakeUserFinder{err: services.ErrNotFound}

	var sawUser bool
	handler := Auth(tokens, finder)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, sawUser)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
}

func TestAuthTamperedToken(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	other := services.NewTokenService("other-secret")
	finder := &fakeUserFinder{user: &models.User{ID: uuid.New()}}

	forged, _, err := other.Issue(uuid.New())
	require.NoError(t, err)

	var sawUser bool
	handler := Auth(tokens, finder)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: forged})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, sawUser)
}

func TestAuthUserDeleted(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	finder := &fakeUserFinder{err: services.ErrNotFound}

	token, _, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	var sawUser bool
	handler := Auth(tokens, finder)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, sawUser)
	assert.Contains(t, rec.Body.String(), "User not found")
}

func TestAuthStoreError(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	finder := &fakeUserFinder{err: errors.New("connection reset")}

	token, _, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	var sawUser bool
	handler := Auth(tokens, finder)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, sawUser)
}

func TestAuthSuccessStripsPasswordHash(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	userID := uuid.New()
	finder := &fakeUserFinder{user: &models.User{
		ID:       userID,
		Username: "alice",
		Email:    "alice@example.com",
		Password: "$argon2id$stored-hash",
	}}

	token, _, err := tokens.Issue(userID)
	require.NoError(t, err)

	var sawUser bool
	handler := Auth(tokens, finder)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawUser)
}
