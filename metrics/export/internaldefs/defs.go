package internaldefs

import (
	"github.com/brokerdesk/authcore"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricAuthorizeGranted, Name: "authcore_authorize_granted_total", Help: "Granted authorizations."},
	{ID: authcore.MetricAuthorizeDenied, Name: "authcore_authorize_denied_total", Help: "Authorizations denied for missing permissions."},
	{ID: authcore.MetricStepUpRequired, Name: "authcore_step_up_required_total", Help: "Sessions asked for elevated verification."},
	{ID: authcore.MetricSessionRejected, Name: "authcore_session_rejected_total", Help: "Sessions rejected by context validation."},
	{ID: authcore.MetricBindingViolation, Name: "authcore_binding_violation_total", Help: "Device, user-agent or enforced IP binding mismatches."},
	{ID: authcore.MetricIPMismatchDowngraded, Name: "authcore_ip_mismatch_downgraded_total", Help: "IP mismatches converted to a risk increment."},
	{ID: authcore.MetricGeoRejected, Name: "authcore_geo_rejected_total", Help: "Requests outside the allowed regions."},
	{ID: authcore.MetricTokenRevoked, Name: "authcore_token_revoked_rejected_total", Help: "Presented tokens found on the revocation list."},
	{ID: authcore.MetricRevocationUnavailable, Name: "authcore_revocation_unavailable_total", Help: "Failed or timed out revocation lookups."},
	{ID: authcore.MetricConditionRejected, Name: "authcore_condition_rejected_total", Help: "Requests rejected by contextual conditions."},
	{ID: authcore.MetricMisconfiguration, Name: "authcore_misconfiguration_total", Help: "Requests denied for configuration defects."},
	{ID: authcore.MetricTokensIssued, Name: "authcore_tokens_issued_total", Help: "Signed access tokens."},
	{ID: authcore.MetricTokensRevoked, Name: "authcore_tokens_revoked_total", Help: "Token ids written to the revocation list."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthorizeLatency, Name: "authcore_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "authcore_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that publish one gauge per bucket.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [authcore.HistogramBucketCount]uint64 {
	var out [authcore.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals. The
// last element is the sample count.
func CumulativeBuckets(raw [authcore.HistogramBucketCount]uint64) [authcore.HistogramBucketCount]uint64 {
	var out [authcore.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
