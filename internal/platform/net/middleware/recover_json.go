package middleware

import (
	stdhttp "net/http"
	"runtime/debug"

	perr "reportdash/internal/platform/errors"
	"reportdash/internal/platform/logger"
	pnet "reportdash/internal/platform/net"
	phttp "reportdash/internal/platform/net/http"
)

// RecoverJSON turns a panic into a 500 envelope and logs the stack
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			v := recover()
			if v == nil || v == stdhttp.ErrAbortHandler {
				if v != nil {
					panic(v)
				}
				return
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			status, env := phttp.ErrorEnvelope(perr.PanicErrf("panic recovered"), reqID)
			phttp.JSON(w, status, env)
		}()
		next.ServeHTTP(w, r)
	})
}
