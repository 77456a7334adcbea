package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/brokerdesk/authcore"
)

// Authorizer is the engine surface used by the guards.
type Authorizer interface {
	Authorize(ctx context.Context, token string, req authcore.Request, operation string, params authcore.Params) (*authcore.Result, error)
}

type resultContextKey struct{}

// ResultFromContext returns the authorization result stored by a guard.
func ResultFromContext(ctx context.Context) (*authcore.Result, bool) {
	res, ok := ctx.Value(resultContextKey{}).(*authcore.Result)
	return res, ok
}

// Options tune how a guard reads the request.
type Options struct {
	// TrustForwardedFor takes the client IP from the first X-Forwarded-For
	// entry. Enable only behind a proxy that overwrites the header.
	TrustForwardedFor bool
	// Params extracts the operation parameters checked by contextual
	// conditions. Nil means no parameters.
	Params func(*http.Request) authcore.Params
}

// Guard authorizes operation for every request before calling next.
func Guard(a Authorizer, operation string) func(http.Handler) http.Handler {
	return GuardWith(a, operation, Options{})
}

// GuardWith is [Guard] with options.
func GuardWith(a Authorizer, operation string, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				writeError(w, authcore.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, authcore.ErrUnauthorized)
				return
			}

			var params authcore.Params
			if opts.Params != nil {
				params = opts.Params(r)
			}

			res, err := a.Authorize(r.Context(), token, requestMetadata(r, opts.TrustForwardedFor), operation, params)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), resultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError maps engine errors to responses without revealing which
// check failed.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authcore.ErrStepUpRequired):
		w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_user_authentication"`)
		http.Error(w, "step_up_required", http.StatusUnauthorized)
	case errors.Is(err, authcore.ErrPermissionDenied), errors.Is(err, authcore.ErrConditionNotMet):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, authcore.ErrMisconfigured), errors.Is(err, authcore.ErrEngineNotReady):
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
