package router

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
)

// Enforcer decides whether a subject may perform act on obj.
// *casbin.Enforcer satisfies it.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

// Authorize rejects requests whose session subject is not allowed act on obj.
// Anonymous requests are rejected with 401.
func Authorize(enforcer Enforcer, obj, act string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clm := jwt.GetAuth(r.Context())
			if clm == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			ok, err := enforcer.Enforce(strconv.FormatInt(clm.UserID, 10), obj, act)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to enforce policy", "object", obj, "action", act, "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			if !ok {
				writeJSON(w, errorResponse{Message: "You are not allowed to perform this action"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
