package middleware

import (
	"context"
	"net/http"
	"strings"

	"kitchenrent/pkg/auth"
	apperrors "kitchenrent/pkg/errors"
	httputil "kitchenrent/pkg/http"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"
)

const (
	actorKey contextKey = "actor"

	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

// WithActor stores actor in ctx and tags the request logger, if any, with
// the actor's id and role.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	if reqLog, ok := logger.FromContext(ctx); ok {
		ctx = logger.NewContext(ctx, reqLog.WithActor(actor.ID, string(actor.Role)))
	}
	return ctx
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// Authenticate resolves the caller from a bearer token.
func Authenticate(tokens auth.TokenManager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				rejectUnauthorized(w, log, r, "Missing bearer token")
				return
			}

			actor, err := tokens.Validate(strings.TrimSpace(token))
			if err != nil {
				rejectUnauthorized(w, log, r, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// TrustedHeaders reads the caller from headers set by an authenticating
// gateway. Only for deployments where the service is not reachable directly.
func TrustedHeaders(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := model.Actor{
				ID:   strings.TrimSpace(r.Header.Get(ActorIDHeader)),
				Role: model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(ActorRoleHeader)))),
			}
			if actor.ID == "" || !actor.Role.IsValid() {
				rejectUnauthorized(w, log, r, "Missing or invalid actor headers")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.For(r.Context()).Warn("Request authentication failed",
		"reason", reason,
		"path", r.URL.Path,
	)
	_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
}
