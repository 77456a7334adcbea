package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/brokerdesk/authcore"
)

// Request header names read by the guards.
const (
	HeaderDeviceFingerprint = "X-Device-Fingerprint"
	HeaderGeoRegion         = "X-Geo-Region"
	HeaderTenantID          = "X-Tenant-ID"
	HeaderForwardedFor      = "X-Forwarded-For"
)

func requestMetadata(r *http.Request, trustForwarded bool) authcore.Request {
	return authcore.Request{
		IP:                clientIP(r, trustForwarded),
		DeviceFingerprint: strings.TrimSpace(r.Header.Get(HeaderDeviceFingerprint)),
		UserAgent:         r.UserAgent(),
		GeoCode:           strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderGeoRegion))),
		Tenant:            strings.TrimSpace(r.Header.Get(HeaderTenantID)),
	}
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}
