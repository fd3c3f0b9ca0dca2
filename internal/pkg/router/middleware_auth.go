package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/jwt"
)

func middlewareAuthentication(verifier jwt.JWT, publicEndpoints map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := matchedRoutePath(r)

			if s, ok := publicEndpoints[r.Method]; ok {
				if _, skip := s[path]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			p := strings.Fields(r.Header.Get("Authorization"))
			if verifier == nil || len(p) != 2 || !strings.EqualFold(p[0], "Bearer") {
				writeError(r.Context(), w, goerror.NewUnauthenticated())
				return
			}

			claims, err := verifier.Verify(p[1])
			if err != nil {
				slog.WarnContext(r.Context(), "bearer credential rejected", "error", err)
				writeError(r.Context(), w, goerror.NewUnauthenticated())
				return
			}

			ctx := jwt.SetAuth(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
