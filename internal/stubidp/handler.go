// AngelaMos | 2026
// handler.go

package stubidp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type contextKey string

const claimsKey contextKey = "claims"

// Handler implements the identity endpoints the console client
// consumes. It is a development double: real enough to exercise every
// client-side code path, including the ones where the server has
// already forgotten the session.
type Handler struct {
	accounts  *AccountStore
	issuer    *TokenIssuer
	validator *validator.Validate
	limiter   *LoginLimiter
	logger    *slog.Logger

	mu          sync.Mutex
	revoked     map[string]struct{}
	resetTokens map[string]string
}

func NewHandler(
	accounts *AccountStore,
	issuer *TokenIssuer,
	limiter *LoginLimiter,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		accounts:    accounts,
		issuer:      issuer,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		limiter:     limiter,
		logger:      logger,
		revoked:     make(map[string]struct{}),
		resetTokens: make(map[string]string),
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)

	r.Get("/healthz", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.With(h.limiter.middleware).Post("/login", h.Login)
		r.Post("/logout-force", h.LogoutForce)
		r.Post("/password-reset", h.RequestPasswordReset)
		r.Post("/password-reset/confirm", h.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
			r.Post("/change-password", h.ChangePassword)
		})
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	TenantID    *string  `json:"tenant_id"`
	UserType    string   `json:"user_type"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		badRequest(w, "invalid email or password format")
		return
	}

	account, err := h.accounts.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			unauthorized(w, "invalid email or password")
			return
		}
		internalError(w, err)
		return
	}

	valid, err := VerifyPassword(req.Password, account.PasswordHash)
	if err != nil {
		internalError(w, err)
		return
	}
	if !valid {
		unauthorized(w, "invalid email or password")
		return
	}

	token, jti, err := h.issuer.Issue(account)
	if err != nil {
		internalError(w, err)
		return
	}

	h.logger.Info("issued token",
		"user_id", account.ID,
		"role", account.Role,
		"jti", jti,
	)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		UserID:      account.ID,
		Email:       account.Email,
		Name:        account.Name,
		Role:        string(account.Role),
		TenantID:    account.TenantID,
		UserType:    account.UserType,
		Permissions: account.Permissions,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		unauthorized(w, "")
		return
	}

	account, err := h.accounts.GetByID(claims.UserID)
	if err != nil {
		unauthorized(w, "unknown principal")
		return
	}

	writeJSON(w, http.StatusOK, account.Principal())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		unauthorized(w, "")
		return
	}

	h.revoke(claims.JTI)
	h.logger.Info("session revoked", "user_id", claims.UserID, "jti", claims.JTI)

	writeJSON(w, http.StatusNoContent, nil)
}

// LogoutForce revokes whatever token was presented, without demanding
// that it still verifies. A session the normal path rejects as invalid
// can still be cleaned up here; a garbage token is simply a no-op.
func (h *Handler) LogoutForce(w http.ResponseWriter, r *http.Request) {
	if token := extractToken(r); token != "" {
		if jti := h.issuer.ExtractJTI(token); jti != "" {
			h.revoke(jti)
			h.logger.Info("session force-revoked", "jti", jti)
		}
	}

	writeJSON(w, http.StatusOK, nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"old" validate:"required"`
	NewPassword     string `json:"new" validate:"required,min=8,max=128"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		unauthorized(w, "")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		badRequest(w, "new password does not meet requirements")
		return
	}

	account, err := h.accounts.GetByID(claims.UserID)
	if err != nil {
		unauthorized(w, "unknown principal")
		return
	}

	valid, err := VerifyPassword(req.CurrentPassword, account.PasswordHash)
	if err != nil {
		internalError(w, err)
		return
	}
	if !valid {
		unauthorized(w, "current password is incorrect")
		return
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		internalError(w, err)
		return
	}

	if err := h.accounts.UpdatePassword(account.ID, newHash); err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		badRequest(w, "invalid email")
		return
	}

	// Whether or not the account exists, the response is the same;
	// the reset token only ever reaches the dev log.
	if _, err := h.accounts.GetByEmail(req.Email); err == nil {
		resetToken := uuid.New().String()

		h.mu.Lock()
		h.resetTokens[resetToken] = strings.ToLower(req.Email)
		h.mu.Unlock()

		h.logger.Info("password reset requested",
			"email", req.Email,
			"reset_token", resetToken,
		)
	}

	writeJSON(w, http.StatusOK, nil)
}

type confirmPasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new"   validate:"required,min=8,max=128"`
}

func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req confirmPasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		badRequest(w, "new password does not meet requirements")
		return
	}

	h.mu.Lock()
	email, ok := h.resetTokens[req.Token]
	if ok {
		delete(h.resetTokens, req.Token)
	}
	h.mu.Unlock()

	if !ok {
		badRequest(w, "invalid or expired reset token")
		return
	}

	account, err := h.accounts.GetByEmail(email)
	if err != nil {
		badRequest(w, "invalid or expired reset token")
		return
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		internalError(w, err)
		return
	}

	if err := h.accounts.UpdatePassword(account.ID, newHash); err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			unauthorized(w, "missing authorization token")
			return
		}

		claims, err := h.issuer.Verify(token)
		if err != nil {
			unauthorized(w, "session is no longer valid")
			return
		}

		if h.isRevoked(claims.JTI) {
			unauthorized(w, "session is no longer valid")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) revoke(jti string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.revoked[jti] = struct{}{}
}

func (h *Handler) isRevoked(jti string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.revoked[jti]
	return ok
}

func claimsFrom(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
