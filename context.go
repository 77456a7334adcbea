package authcore

import (
	"context"

	"github.com/brokerdesk/authcore/session"
)

type clientIPContextKey struct{}
type tenantIDContextKey struct{}
type userAgentContextKey struct{}
type deviceFingerprintContextKey struct{}
type geoCodeContextKey struct{}

// WithClientIP attaches the caller's raw IP address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithTenantID attaches the tenant addressed by the request to ctx.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDContextKey{}, tenantID)
}

// WithUserAgent attaches the raw User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithDeviceFingerprint attaches the raw client device fingerprint to ctx.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, deviceFingerprintContextKey{}, fingerprint)
}

// WithGeoCode attaches the region resolved for the live request to ctx.
func WithGeoCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, geoCodeContextKey{}, code)
}

func stringFromContext(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// RequestFromContext collects the request metadata attached with the
// With* helpers.
func RequestFromContext(ctx context.Context) session.Request {
	return session.Request{
		IP:                stringFromContext(ctx, clientIPContextKey{}),
		DeviceFingerprint: stringFromContext(ctx, deviceFingerprintContextKey{}),
		UserAgent:         stringFromContext(ctx, userAgentContextKey{}),
		GeoCode:           stringFromContext(ctx, geoCodeContextKey{}),
		Tenant:            stringFromContext(ctx, tenantIDContextKey{}),
	}
}

// mergeRequest fills empty fields of req from ctx.
func mergeRequest(ctx context.Context, req session.Request) session.Request {
	fromCtx := RequestFromContext(ctx)
	if req.IP == "" {
		req.IP = fromCtx.IP
	}
	if req.DeviceFingerprint == "" {
		req.DeviceFingerprint = fromCtx.DeviceFingerprint
	}
	if req.UserAgent == "" {
		req.UserAgent = fromCtx.UserAgent
	}
	if req.GeoCode == "" {
		req.GeoCode = fromCtx.GeoCode
	}
	if req.Tenant == "" {
		req.Tenant = fromCtx.Tenant
	}
	return req
}
