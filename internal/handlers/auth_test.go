package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/models"
	"github.com/calmry/calmry-backend/internal/services"
	"github.com/calmry/calmry-backend/pkg/utils"
)

type fakeUserStore struct {
	users     map[uuid.UUID]*models.User
	createErr error
	updateErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserStore) add(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) CreateUser(ctx context.Context, u *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.add(u)
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) EmailTakenByOther(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	for _, u := range f.users {
		if u.Email == email && u.ID != id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, u *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[u.ID]; !ok {
		return services.ErrNotFound
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

type fakeAuditor struct {
	signins []*models.AuthSession
	revoked []string
}

func (f *fakeAuditor) RecordSignin(ctx context.Context, rec *models.AuthSession) error {
	f.signins = append(f.signins, rec)
	return nil
}

func (f *fakeAuditor) RevokeByDigest(ctx context.Context, digest string) error {
	f.revoked = append(f.revoked, digest)
	return nil
}

func (f *fakeAuditor) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]models.AuthSession, error) {
	var out []models.AuthSession
	for _, rec := range f.signins {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func newAuthHandler(t *testing.T) (*AuthHandler, *fakeUserStore, *fakeAuditor) {
	t.Helper()
	users := newFakeUserStore()
	audit := &fakeAuditor{}
	tokens := services.NewTokenService("test-secret")
	return NewAuthHandler(users, audit, tokens, false), users, audit
}

func seedUser(t *testing.T, users *fakeUserStore, email, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	return users.add(&models.User{
		Username: "alice",
		Email:    email,
		Password: hash,
	})
}

func postJSON(handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSignupSuccess(t *testing.T) {
	h, users, _ := newAuthHandler(t)

	rec := postJSON(h.Signup, "/api/user/signup", SignupRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "Sup3r$ecret",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, rec.Body.String(), "$argon2id$")

	// Stored with normalized email and hashed password.
	stored, err := users.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r$ecret", stored.Password)
	assert.NotEmpty(t, stored.Password)
}

func TestSignupValidationFailure(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	rec := postJSON(h.Signup, "/api/user/signup", SignupRequest{
		Username: "ab",
		Email:    "not-an-email",
		Password: "weak",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errs, ok := body["errors"].([]interface{})
	require.True(t, ok)
	assert.Len(t, errs, 3)
}

func TestSignupDuplicateEmail(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	rec := postJSON(h.Signup, "/api/user/signup", SignupRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "An0ther$ecret",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSigninSuccess(t *testing.T) {
	h, users, audit := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	rec := postJSON(h.Signin, "/api/user/signin", SigninRequest{
		Email:    "alice@example.com",
		Password: "Sup3r$ecret",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, middleware.AuthCookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	require.Len(t, audit.signins, 1)
	assert.Equal(t, user.ID, audit.signins[0].UserID)
	assert.Equal(t, services.TokenDigest(cookie.Value), audit.signins[0].TokenDigest)
}

func TestSigninBadCredentials(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	wrongPassword := postJSON(h.Signin, "/api/user/signin", SigninRequest{
		Email:    "alice@example.com",
		Password: "WrongPassword1!",
	})
	unknownEmail := postJSON(h.Signin, "/api/user/signin", SigninRequest{
		Email:    "nobody@example.com",
		Password: "Sup3r$ecret",
	})

	// Identical status and body for both failure modes.
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Empty(t, wrongPassword.Result().Cookies())
}

func TestSigninMissingFields(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	rec := postJSON(h.Signin, "/api/user/signin", SigninRequest{Email: "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignoutClearsCookieAndRevokes(t *testing.T) {
	h, _, audit := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/user/signout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: "some-token"})
	rec := httptest.NewRecorder()
	h.Signout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)

	require.Len(t, audit.revoked, 1)
	assert.Equal(t, services.TokenDigest("some-token"), audit.revoked[0])
}

func TestMe(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	public := *user
	public.Password = ""
	req = req.WithContext(middleware.WithUser(req.Context(), &public))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "$argon2id$")
}

func TestSessionsListsOwnSigninsOnly(t *testing.T) {
	h, users, audit := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")
	audit.signins = append(audit.signins,
		&models.AuthSession{ID: uuid.New(), UserID: user.ID, TokenDigest: "digest-a", DeviceInfo: "Firefox 130 on Linux"},
		&models.AuthSession{ID: uuid.New(), UserID: uuid.New(), TokenDigest: "digest-b", DeviceInfo: "Safari 17 on macOS"},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/user/sessions", nil)
	ctxUser := *user
	ctxUser.Password = ""
	req = req.WithContext(middleware.WithUser(req.Context(), &ctxUser))
	rec := httptest.NewRecorder()
	h.Sessions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	sessions, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, sessions, 1)
	assert.Contains(t, rec.Body.String(), "Firefox 130 on Linux")
	assert.NotContains(t, rec.Body.String(), "digest-a")
}

func TestMeUnauthenticated(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func updateRequest(t *testing.T, h *AuthHandler, user *models.User, body UpdateRequest) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, "/api/user/update", bytes.NewReader(data))
	ctxUser := *user
	ctxUser.Password = ""
	req = req.WithContext(middleware.WithUser(req.Context(), &ctxUser))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	return rec
}

func TestUpdateSuccess(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	rec := updateRequest(t, h, user, UpdateRequest{
		CurrentPassword: "Sup3r$ecret",
		NewUsername:     "alice-renamed",
		NewEmail:        "alice.new@example.com",
		NewPassword:     "N3w$ecretPass",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := users.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice-renamed", stored.Username)
	assert.Equal(t, "alice.new@example.com", stored.Email)

	ok, err := utils.VerifyPassword("N3w$ecretPass", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateWrongCurrentPassword(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	rec := updateRequest(t, h, user, UpdateRequest{
		CurrentPassword: "WrongPassword1!",
		NewUsername:     "alice-renamed",
		NewEmail:        "alice.new@example.com",
		NewPassword:     "N3w$ecretPass",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stored, err := users.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestUpdateEmailTaken(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")
	users.add(&models.User{Username: "bob", Email: "bob@example.com", Password: "x"})

	rec := updateRequest(t, h, user, UpdateRequest{
		CurrentPassword: "Sup3r$ecret",
		NewUsername:     "alice",
		NewEmail:        "bob@example.com",
		NewPassword:     "N3w$ecretPass",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateInvalidNewFields(t *testing.T) {
	h, users, _ := newAuthHandler(t)
	user := seedUser(t, users, "alice@example.com", "Sup3r$ecret")

	rec := updateRequest(t, h, user, UpdateRequest{
		CurrentPassword: "Sup3r$ecret",
		NewUsername:     "ab",
		NewEmail:        "bad",
		NewPassword:     "weak",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errs, ok := body["errors"].([]interface{})
	require.True(t, ok)
	assert.Len(t, errs, 3)
}
