package v1

import (
	"net/http"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
	"storefront-console/pkg/utils"
)

const accessTokenCookie = "accessToken"

type AuthHandler struct {
	responder
	authUC  *usecase.AuthUsecase
	userUC  *usecase.UserUsecase
	secure  bool
	lastFor time.Duration
}

// NewAuthHandler builds the auth endpoints. secure marks the session cookie
// Secure; cookieTTL bounds its lifetime.
func NewAuthHandler(authUC *usecase.AuthUsecase, userUC *usecase.UserUsecase, sessions SessionEvicter, secure bool, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		responder: responder{sessions: sessions},
		authUC:    authUC,
		userUC:    userUC,
		secure:    secure,
		lastFor:   cookieTTL,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.authUC.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    res.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.lastFor.Seconds()),
	})
	h.ok(w, map[string]interface{}{
		"accessToken": res.AccessToken,
		"user":        res.User,
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.NewUser
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.authUC.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.created(w, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authUC.Logout(r.Context(), utils.ExtractToken(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, Value: "", Path: "/", MaxAge: -1})
	h.message(w, "logged out")
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.authUC.ForgotPassword(r.Context(), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "if the address is registered a reset link was sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.authUC.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "password reset")
}

// Session reports the resolved session user.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	store, user, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.ok(w, map[string]interface{}{
		"authenticated": true,
		"state":         store.State().String(),
		"user":          user,
		"expiresAt":     store.ExpiresAt(),
	})
}

func (h *AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	_, user, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req domain.UserUpdate
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.userUC.UpdateAccount(r.Context(), user, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, updated)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	_, user, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.authUC.ChangePassword(r.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "password changed")
}
