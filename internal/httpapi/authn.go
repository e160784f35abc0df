package httpapi

import (
	"net/http"
	"strings"

	"papertrade.org/internal/auth"
)

// publicPaths are reachable without a bearer token. Market data stays open
// so the quote board works before login.
func isPublicPath(path string) bool {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/v1/info",
		"/v1/auth/register", "/v1/auth/login",
		"/v1/stocks", "/v1/stream":
		return true
	}
	return strings.HasPrefix(path, "/v1/stocks/")
}

// withAuth gates everything that is not public behind a valid session token
// and threads the session identity into the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="papertrade"`)
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="papertrade", error="invalid_token"`)
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := auth.ContextWithSession(r.Context(), claims.Subject, claims.AccountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
