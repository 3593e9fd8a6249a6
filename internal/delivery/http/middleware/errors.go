package middleware

import (
	"errors"
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"
	"storefront-console/pkg/utils"
)

// ErrorStatus maps an error of the domain taxonomy onto an HTTP status and body.
func ErrorStatus(err error) (int, utils.ErrorBody) {
	body := utils.ErrorBody{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Error = "validation failed"
		body.Fields = verr.Fields
		return http.StatusUnprocessableEntity, body
	}
	if domain.NeedsReauth(err) {
		body.Reauth = true
		return http.StatusUnauthorized, body
	}

	var terr *domain.TransitionError
	if errors.As(err, &terr) && terr.Current != "" {
		body.CurrentStatus = string(terr.Current)
	}

	switch {
	case errors.Is(err, domain.ErrNotOrderOwner), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, body
	case errors.Is(err, domain.ErrTransitionNotAllowed),
		errors.Is(err, domain.ErrTransitionRejected),
		errors.Is(err, domain.ErrTransitionInFlight),
		errors.Is(err, domain.ErrStaleView):
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrTransitionTimeout):
		return http.StatusGatewayTimeout, body
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrUnknownOperation), errors.Is(err, domain.ErrUnknownOrderStatus):
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrCartEmpty):
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domain.ErrChatDisabled), errors.Is(err, domain.ErrSessionNotReady):
		return http.StatusServiceUnavailable, body
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusBadGateway, body
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			if apiErr.Message != "" {
				body.Error = apiErr.Message
			}
			return apiErr.StatusCode, body
		}
		return http.StatusBadGateway, body
	}

	body.Error = "internal server error"
	return http.StatusInternalServerError, body
}

// WriteDomainError writes err using ErrorStatus. Server-side failures are logged.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	utils.WriteJSON(w, status, body)
}
