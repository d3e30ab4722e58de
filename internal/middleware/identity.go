package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ytakeda/execpersona/backend/pkg/utils"
)

type ctxKey string

const identityKey ctxKey = "identity"

// IdentityHeader carries the opaque identity placed by the upstream auth
// layer. The core trusts it; verification happened before us.
const IdentityHeader = "X-Identity"

// Identity rejects requests without an identity header and stores the
// value in the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := strings.TrimSpace(r.Header.Get(IdentityHeader))
		if identity == "" {
			utils.RespondError(w, http.StatusUnauthorized, "identity required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// WithIdentity stores an identity in the context.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the identity stored by the middleware.
func IdentityFrom(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey).(string)
	return identity
}
