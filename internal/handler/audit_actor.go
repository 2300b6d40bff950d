package handler

import (
	"net/http"

	"estate-api/internal/middleware"
	"estate-api/internal/model"
)

// actorFromRequest describes the caller for the audit trail. Unauthenticated
// endpoints pass the user they resolved, if any.
func actorFromRequest(r *http.Request, user *model.User) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}

	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		actor.UserID = identity.UserID
		actor.Email = identity.Email
		actor.Role = string(identity.Role)
		return actor
	}

	if user != nil && user.ID != "" {
		actor.UserID = user.ID
		actor.Email = user.Email
		actor.Role = string(user.Role)
	}
	return actor
}

func identityOrReject(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondNotAuthenticated(w, r)
	}
	return identity, ok
}
