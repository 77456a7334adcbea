package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/brokerdesk/authcore"
	"github.com/brokerdesk/authcore/policy"
)

const loadPolicy = `
issuer: authcore-loadtest
roles:
  USER:
    profile: [VIEW]
  AGENT:
    deal: [VIEW, EDIT]
  COMPANY_ADMIN:
    deal: [APPROVE]
operations:
  - name: deal.view
    requires:
      - {resource: deal, actions: [VIEW]}
    sensitivity: low
  - name: deal.pay
    requires:
      - {resource: deal, actions: [EDIT]}
    parameters: [transaction_value]
`

type tokenState struct {
	token     string
	ip        string
	device    string
	userAgent string
}

func main() {
	var (
		tokens      = pflag.Int("tokens", 10000, "number of tokens to issue")
		concurrency = pflag.Int("concurrency", 256, "number of concurrent workers")
		ops         = pflag.Int("ops", 200000, "operations per phase (authorize + revoked)")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = pflag.String("prefix", "arv", "revocation key prefix")
		revokeEvery = pflag.Int("revoke-every", 10, "revoke one in N tokens before the revoked phase")
	)
	pflag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *revokeEvery <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, ops and revoke-every must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]tokenState, *tokens)
	fmt.Printf("issuing %d tokens...\n", *tokens)
	startIssue := time.Now()
	for i := 0; i < *tokens; i++ {
		state := tokenState{
			ip:        fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff),
			device:    "device-" + strconv.Itoa(i),
			userAgent: "loadtest/1.0",
		}
		token, _, err := engine.Issue(ctx, authcore.IssueInput{
			Subject:             "user-" + strconv.Itoa(i),
			Tenant:              "tenant-" + strconv.Itoa(i%16),
			Roles:               []string{"AGENT"},
			Conditions:          []string{"MAX_TRANSACTION_VALUE:50000"},
			IP:                  state.ip,
			DeviceFingerprint:   state.device,
			UserAgent:           state.userAgent,
			DataProtectionLevel: 2,
			RiskScore:           i % 60,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		state.token = token
		states[i] = state
	}
	fmt.Printf("issued in %s\n", time.Since(startIssue).Round(time.Millisecond))

	authorizeStats := runPhase(ctx, engine, states, *ops, *concurrency, 7919)

	for i := 0; i < len(states); i += *revokeEvery {
		if err := engine.RevokeToken(ctx, states[i].token); err != nil {
			fmt.Fprintf(os.Stderr, "revoke failed: %v\n", err)
			os.Exit(1)
		}
	}
	revokedStats := runPhase(ctx, engine, states, *ops, *concurrency, 6151)

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("with-revocations", revokedStats)
}

func buildEngine(client redis.UniversalClient, prefix string) (*authcore.Engine, error) {
	doc, err := policy.Parse([]byte(loadPolicy))
	if err != nil {
		return nil, err
	}
	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("loadtest-signing-key-0123456789ab")
	cfg.JWT.Issuer = "authcore-loadtest"
	cfg.Session.BindingKey = []byte("loadtest-binding-key")
	cfg.Revocation.RedisPrefix = prefix
	cfg.Metrics.Enabled = true

	return authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithPolicy(doc).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}

func runPhase(ctx context.Context, engine *authcore.Engine, states []tokenState, ops, concurrency int, seed int64) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				req := authcore.Request{
					IP:                state.ip,
					DeviceFingerprint: state.device,
					UserAgent:         state.userAgent,
				}
				op, params := "deal.view", authcore.Params(nil)
				if i%2 == 1 {
					op, params = "deal.pay", authcore.Params{"transaction_value": strconv.Itoa(r.Intn(60000))}
				}
				t0 := time.Now()
				_, err := engine.Authorize(ctx, state.token, req, op, params)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

// printStats reports failures as denials of any kind: revoked tokens and
// exceeded transaction limits both count.
func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d denied=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
