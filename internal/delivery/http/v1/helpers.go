package v1

import (
	"net/http"

	"storefront-console/internal/delivery/http/middleware"
	"storefront-console/internal/domain"
	"storefront-console/internal/session"
	"storefront-console/pkg/utils"
)

const maxJSONBody = 1 << 20

// responder is embedded by every handler. It writes errors and drops the
// caller's session when the backend stopped accepting its token.
type responder struct {
	sessions SessionEvicter
}

// SessionEvicter drops the server-side session of a token.
type SessionEvicter interface {
	Evict(token string)
}

func (h responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	if domain.NeedsReauth(err) && h.sessions != nil {
		if token := utils.ExtractToken(r); token != "" {
			h.sessions.Evict(token)
		}
	}
	middleware.WriteDomainError(w, r, err)
}

func (h responder) ok(w http.ResponseWriter, data interface{}) {
	utils.WriteJSON(w, http.StatusOK, data)
}

func (h responder) created(w http.ResponseWriter, data interface{}) {
	utils.WriteJSON(w, http.StatusCreated, data)
}

func (h responder) message(w http.ResponseWriter, msg string) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// decode reads a JSON body, answering 400 itself on failure.
func (h responder) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := utils.DecodeJSON(r, v, maxJSONBody); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// caller returns the session and user the auth middleware resolved.
func (h responder) caller(w http.ResponseWriter, r *http.Request) (*session.Store, *domain.User, bool) {
	store, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return nil, nil, false
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return nil, nil, false
	}
	return store, user, true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "id is required")
		return "", false
	}
	return id, true
}
