package router

import (
	"net/http"

	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
)

const (
	// HeaderCorrelationID carries the id that ties the request log lines,
	// the trace and any published event together.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is read when a proxy only sets this one.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// validCID accepts ids a client may choose. Anything else could forge log
// lines or headers and is replaced by a generated one.
func validCID(v string) bool {
	if v == "" || len(v) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := r.Header.Get(HeaderCorrelationID)
			if !validCID(cid) {
				cid = r.Header.Get(HeaderRequestID)
			}
			if !validCID(cid) {
				cid = ""
				if gen != nil {
					cid = gen.Generate()
				}
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
