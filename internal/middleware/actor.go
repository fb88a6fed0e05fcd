package middleware

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey string

const actorKey contextKey = "actor_id"

// ActorMiddleware reads the authenticated user id from the X-Actor-ID
// header set by the upstream auth proxy and stores it in the request
// context. Requests without the header pass through anonymously;
// handlers that need an actor reject those themselves.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-Actor-ID"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid X-Actor-ID header", http.StatusBadRequest)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), actorKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFrom returns the authenticated actor id from the context, if any.
func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey).(int64)
	return id, ok
}
