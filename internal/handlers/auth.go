package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"

	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/models"
	"github.com/calmry/calmry-backend/internal/services"
	"github.com/calmry/calmry-backend/pkg/clientip"
	"github.com/calmry/calmry-backend/pkg/utils"
)

// UserStore is the credential-store surface the handlers depend on.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	EmailTakenByOther(ctx context.Context, email string, id uuid.UUID) (bool, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

// SessionAuditor records sign-in events and revocations. Bookkeeping only.
type SessionAuditor interface {
	RecordSignin(ctx context.Context, rec *models.AuthSession) error
	RevokeByDigest(ctx context.Context, digest string) error
	ListUserSessions(ctx context.Context, userID uuid.UUID) ([]models.AuthSession, error)
}

type AuthHandler struct {
	users      UserStore
	audit      SessionAuditor
	tokens     *services.TokenService
	production bool
}

func NewAuthHandler(users UserStore, audit SessionAuditor, tokens *services.TokenService, production bool) *AuthHandler {
	return &AuthHandler{
		users:      users,
		audit:      audit,
		tokens:     tokens,
		production: production,
	}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateRequest struct {
	CurrentPassword string `json:"currentpassword"`
	NewUsername     string `json:"newusername"`
	NewEmail        string `json:"newemail"`
	NewPassword     string `json:"newpassword"`
}

// Signup handles user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = utils.NormalizeEmail(req.Email)

	if errs := utils.ValidateSignup(req.Username, req.Email, req.Password); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Validation Failed",
			"errors":  errs,
		})
		return
	}

	_, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err == nil {
		fail(w, http.StatusConflict, "User already exists")
		return
	}
	if err != services.ErrNotFound {
		log.Error().Err(err).Msg("Signup email lookup failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Password hashing failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User successfully signed up",
		"user":    user.Public(),
	})
}

// Signin handles user login: credential check, token issue, cookie set,
// and a best-effort session-audit row.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	// Same message for unknown email and wrong password.
	user, err := h.users.GetUserByEmail(r.Context(), utils.NormalizeEmail(req.Email))
	if err == services.ErrNotFound {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Signin user lookup failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Token issue failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	http.SetCookie(w, h.authCookie(token, expiresAt))

	// Audit bookkeeping; a failed insert must not block the login.
	rec := &models.AuthSession{
		UserID:      user.ID,
		TokenDigest: services.TokenDigest(token),
		DeviceInfo:  deviceInfo(r.UserAgent()),
		IPAddress:   clientip.RealClientIP(r),
		ExpiresAt:   expiresAt,
	}
	if err := h.audit.RecordSignin(r.Context(), rec); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to record signin audit row")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    user.Public(),
	})
}

// Signout clears the auth cookie. Always succeeds.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AuthCookieName); err == nil && cookie.Value != "" {
		if err := h.audit.RevokeByDigest(r.Context(), services.TokenDigest(cookie.Value)); err != nil {
			log.Warn().Err(err).Msg("Failed to revoke audit row on signout")
		}
	}

	expired := h.authCookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Signed out",
	})
}

// Me returns the authenticated caller's public identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user.Public(),
	})
}

// Sessions lists the caller's live sign-in audit rows, newest first.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	sessions, err := h.audit.ListUserSessions(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to list audit sessions")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}
	if sessions == nil {
		sessions = []models.AuthSession{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": sessions,
	})
}

// Update replaces the username/email/password triple after re-verifying
// the current password. Any single field failing validation rejects the
// whole update.
func (h *AuthHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" {
		fail(w, http.StatusBadRequest, "Current password is required")
		return
	}

	// The context user has its hash stripped; refetch for verification.
	user, err := h.users.GetUserByID(r.Context(), caller.ID)
	if err == services.ErrNotFound {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Update user lookup failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	valid, err := utils.VerifyPassword(req.CurrentPassword, user.Password)
	if err != nil || !valid {
		fail(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	req.NewUsername = strings.TrimSpace(req.NewUsername)
	req.NewEmail = utils.NormalizeEmail(req.NewEmail)

	if errs := utils.ValidateSignup(req.NewUsername, req.NewEmail, req.NewPassword); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Validation Failed",
			"errors":  errs,
		})
		return
	}

	taken, err := h.users.EmailTakenByOther(r.Context(), req.NewEmail, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Update email uniqueness check failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}
	if taken {
		fail(w, http.StatusConflict, "Email is already registered")
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		log.Error().Err(err).Msg("Password hashing failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	user.Username = req.NewUsername
	user.Email = req.NewEmail
	user.Password = hashed
	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		log.Error().Err(err).Msg("Failed to update user")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated",
		"user":    user.Public(),
	})
}

func (h *AuthHandler) authCookie(token string, expiresAt time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	}
	// Cross-site frontend needs SameSite=None, which requires Secure.
	if h.production {
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

func deviceInfo(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.Parse(userAgent)
	if ua.Name == "" {
		return userAgent
	}
	return fmt.Sprintf("%s %s on %s", ua.Name, ua.Version, ua.OS)
}
