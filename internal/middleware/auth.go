package middleware

import (
	"net/http"

	"github.com/2beens/pushupjourney/internal/telemetry/tracing"
	"github.com/2beens/pushupjourney/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const AdminSecretHeader = "X-PUSHUPS-SECRET"

// AuthMiddlewareHandler guards destructive routes with an admin secret,
// checked against its bcrypt hash. All other paths pass through.
type AuthMiddlewareHandler struct {
	adminSecretHash string
	protectedPaths  map[string]bool
}

func NewAuthMiddlewareHandler(adminSecretHash string, protectedPaths ...string) *AuthMiddlewareHandler {
	h := &AuthMiddlewareHandler{
		adminSecretHash: adminSecretHash,
		protectedPaths:  make(map[string]bool, len(protectedPaths)),
	}
	for _, p := range protectedPaths {
		h.protectedPaths[p] = true
	}
	return h
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions || !h.protectedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			secret := r.Header.Get(AdminSecretHeader)
			if secret == "" {
				log.Tracef("[missing secret] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-secret")
				return
			}

			if !pkg.CheckPasswordHash(secret, h.adminSecretHash) {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Warnf("[invalid secret] [auth middleware] unauthorized %s => %s", reqIp, r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-secret")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
