package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
)

// middlewareIdentity attaches the caller identity issued by the external
// identity provider. A request without an Authorization header continues
// anonymously unless required is set; a header that does not verify is
// always rejected.
func middlewareIdentity(verifier jwt.Verifier, required bool, publicEndpoints map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := publicEndpoints[r.Method]; ok {
				if _, skip := s[matchedRoutePath(r)]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			if header == "" || verifier == nil {
				if required {
					writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			p := strings.Fields(header)
			if len(p) != 2 || !strings.EqualFold(p[0], "Bearer") {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(p[1])
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
