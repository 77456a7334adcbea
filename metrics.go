package authcore

import (
	internalmetrics "github.com/brokerdesk/authcore/internal/metrics"
)

// MetricID identifies one in-process counter or histogram.
type MetricID = internalmetrics.MetricID

const (
	// MetricAuthorizeGranted counts granted authorizations.
	MetricAuthorizeGranted = internalmetrics.MetricAuthorizeGranted
	// MetricAuthorizeDenied counts permission denials.
	MetricAuthorizeDenied = internalmetrics.MetricAuthorizeDenied
	// MetricStepUpRequired counts sessions asked for elevated verification.
	MetricStepUpRequired = internalmetrics.MetricStepUpRequired
	// MetricSessionRejected counts terminal session failures of any kind.
	MetricSessionRejected = internalmetrics.MetricSessionRejected
	// MetricBindingViolation counts device, user-agent or enforced IP mismatches.
	MetricBindingViolation = internalmetrics.MetricBindingViolation
	// MetricIPMismatchDowngraded counts IP mismatches converted to a risk increment.
	MetricIPMismatchDowngraded = internalmetrics.MetricIPMismatchDowngraded
	// MetricGeoRejected counts geo-restriction rejections.
	MetricGeoRejected = internalmetrics.MetricGeoRejected
	// MetricTokenRevoked counts presented tokens found on the revocation list.
	MetricTokenRevoked = internalmetrics.MetricTokenRevoked
	// MetricRevocationUnavailable counts failed or timed out revocation lookups.
	MetricRevocationUnavailable = internalmetrics.MetricRevocationUnavailable
	// MetricConditionRejected counts contextual condition rejections.
	MetricConditionRejected = internalmetrics.MetricConditionRejected
	// MetricMisconfiguration counts requests denied for configuration defects.
	MetricMisconfiguration = internalmetrics.MetricMisconfiguration
	// MetricTokensIssued counts signed tokens.
	MetricTokensIssued = internalmetrics.MetricTokensIssued
	// MetricTokensRevoked counts Revoke calls that succeeded.
	MetricTokensRevoked = internalmetrics.MetricTokensRevoked
	// MetricAuthorizeLatency is the authorize latency histogram.
	MetricAuthorizeLatency = internalmetrics.MetricAuthorizeLatency
)

// HistogramBucketCount is the number of latency buckets, +Inf included.
const HistogramBucketCount = internalmetrics.HistogramBucketCount

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] configured by cfg. When Enabled is false
// every operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
