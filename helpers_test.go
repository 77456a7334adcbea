package authcore

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/brokerdesk/authcore/policy"
	"github.com/brokerdesk/authcore/session"
)

const testPolicyYAML = `
issuer: brokerdesk
roles:
  USER:
    profile: [VIEW, EDIT]
  AGENT:
    deal: [VIEW, CREATE, EDIT]
  COMPANY_ADMIN:
    deal: [APPROVE]
  ADMIN:
    deal: [DELETE]
privileges:
  document_executor:
    document: [EXECUTE]
risk_ceilings:
  high: 55
operations:
  - name: deal.view
    requires:
      - {resource: deal, actions: [VIEW]}
    sensitivity: low
  - name: deal.approve
    requires:
      - {resource: deal, actions: [VIEW, APPROVE]}
    sensitivity: high
    geo_restricted: true
    allowed_regions: [US, CA]
    min_data_protection_level: 3
  - name: deal.pay
    requires:
      - {resource: deal, actions: [EDIT]}
    parameters: [transaction_value]
  - name: document.sign
    requires:
      - {resource: document, actions: [EXECUTE]}
`

const (
	testIP     = "203.0.113.7"
	testDevice = "device-fp-1"
	testUA     = "Mozilla/5.0 (X11; Linux x86_64) broker-portal"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "brokerdesk"
	cfg.JWT.Audience = "broker-api"
	cfg.Session.BindingKey = []byte("binding-key")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func testPolicy(t *testing.T) *policy.File {
	t.Helper()
	f, err := policy.Parse([]byte(testPolicyYAML))
	if err != nil {
		t.Fatalf("policy.Parse: %v", err)
	}
	return f
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engineFixture struct {
	engine *Engine
	mr     *miniredis.Miniredis
	sink   *ChannelSink
}

func newTestEngine(t *testing.T, mutate func(*Config)) engineFixture {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 128
	cfg.Audit.DropIfFull = false
	if mutate != nil {
		mutate(&cfg)
	}

	sink := NewChannelSink(128)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPolicy(testPolicy(t)).
		WithLogger(quietLogger()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engineFixture{engine: engine, mr: mr, sink: sink}
}

func baseInput(roles ...string) IssueInput {
	return IssueInput{
		Subject:             "user-42",
		Tenant:              "acme-realty",
		Roles:               roles,
		IP:                  testIP,
		DeviceFingerprint:   testDevice,
		UserAgent:           testUA,
		GeoCode:             "US-NY",
		DataProtectionLevel: 3,
		RiskScore:           10,
	}
}

func liveRequest() session.Request {
	return session.Request{
		IP:                testIP,
		DeviceFingerprint: testDevice,
		UserAgent:         testUA,
		Tenant:            "acme-realty",
	}
}

func issue(t *testing.T, e *Engine, in IssueInput) string {
	t.Helper()
	token, _, err := e.Issue(t.Context(), in)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func nextEvent(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s audit event", eventType)
		}
	}
}
