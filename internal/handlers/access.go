package handlers

import (
	"net/http"

	"hoctap/internal/i18n"
	"hoctap/internal/models"
)

// resolveTarget returns the user id a request acts on. An empty id means
// the caller; another user's id needs an admin caller.
func resolveTarget(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	caller := GetUserFromContext(r.Context())
	if caller == nil {
		respondWithError(w, http.StatusUnauthorized, i18n.T(translator(r), i18n.MsgUnauthorized), "", nil)
		return "", false
	}
	if requested == "" || requested == caller.ID {
		return caller.ID, true
	}
	if !caller.IsAdmin() {
		respondWithError(w, http.StatusForbidden, i18n.T(translator(r), i18n.MsgForbidden), "", nil)
		return "", false
	}
	return requested, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	caller := GetUserFromContext(r.Context())
	if caller == nil || !caller.IsAdmin() {
		respondWithError(w, http.StatusForbidden, i18n.T(translator(r), i18n.MsgForbidden), "", nil)
		return nil, false
	}
	return caller, true
}
