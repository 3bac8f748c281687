package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
)

const maintenanceMessage = "Taskdeck is under maintenance. Please try again shortly."

// maintenance holds the app.maintenance settings. An endpoint entry is a
// route pattern, optionally prefixed by a method as in "POST /api/projects".
type maintenance struct {
	readOnly   bool
	routes     map[string]struct{}
	retryAfter int
}

func newMaintenance(cfg config.Config) maintenance {
	m := maintenance{routes: make(map[string]struct{})}
	if cfg == nil {
		return m
	}

	m.readOnly = cfg.GetBool("app.maintenance.read_only")
	m.retryAfter = cfg.GetInt("app.maintenance.retry_after_seconds")
	for _, endpoint := range cfg.GetArray("app.maintenance.endpoints") {
		method, route, found := strings.Cut(strings.TrimSpace(endpoint), " ")
		if !found {
			method, route = "", method
		}
		route = strings.TrimSpace(route)
		if route == "" {
			continue
		}
		m.routes[strings.ToUpper(method)+" "+route] = struct{}{}
	}

	return m
}

// blocks reports whether the request is refused. Read-only mode refuses
// every write except signing in and out, so an admin can still reach the
// app.
func (m maintenance) blocks(method, route string) bool {
	if _, ok := m.routes[" "+route]; ok {
		return true
	}
	if _, ok := m.routes[method+" "+route]; ok {
		return true
	}
	if !m.readOnly {
		return false
	}

	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return !strings.HasPrefix(route, "/api/auth/")
}

func middlewareMaintenance(cfg config.Config) Middleware {
	m := newMaintenance(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.blocks(r.Method, matchedRoutePath(r)) {
				if m.retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(m.retryAfter))
				}
				writeJSON(w, errorResponse{Message: maintenanceMessage}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
