package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
)

// Headers set by the auth gateway in front of the API
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

type actorKey struct{}

// ActorMiddleware attaches the caller identity from the trusted actor headers.
// Requests without X-Actor-ID pass through anonymously. The system role belongs
// to the sweep and is refused over HTTP.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor := entities.Actor{
			ID:          id,
			DisplayName: strings.TrimSpace(r.Header.Get(HeaderActorName)),
			Role:        entities.ActorRole(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
		}
		if actor.IsSystem() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "role system is not accepted from clients"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor entities.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached by ActorMiddleware
func ActorFromContext(ctx context.Context) (entities.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(entities.Actor)
	return actor, ok
}
