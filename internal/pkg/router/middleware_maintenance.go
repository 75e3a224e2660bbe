package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/mailbite/internal/pkg/config"
)

// middlewareMaintenance answers 503 for routes listed in
// app.maintenance.endpoints. An entry ending in "*" blocks every route with
// that prefix. The list is read per request so a config reload applies
// without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg != nil && underMaintenance(cfg.GetArray("app.maintenance.endpoints"), matchedRoutePath(r)) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func underMaintenance(endpoints []string, route string) bool {
	for _, endpoint := range endpoints {
		if prefix, ok := strings.CutSuffix(endpoint, "*"); ok {
			if strings.HasPrefix(route, prefix) {
				return true
			}
			continue
		}
		if endpoint == route {
			return true
		}
	}
	return false
}
