package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	sessionauth "github.com/parlorworks/sessionauth"
	"github.com/parlorworks/sessionauth/identity"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of bound sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (resume + commit)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sa", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
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

	cfg := sessionauth.DefaultConfig()
	cfg.Session.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	dir := syntheticDirectory{}
	manager, err := sessionauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(dir).
		WithPermissionDirectory(dir).
		WithRoleDirectory(dir).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "manager build failed: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	tokens := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		s := manager.Begin(ctx, "")
		if err := s.SignIn(ctx, fmt.Sprintf("user-%d", i)); err != nil {
			fmt.Fprintf(os.Stderr, "seed sign-in failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = manager.Commit(ctx, s)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resumeStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		s := manager.Begin(ctx, tokens[r.Intn(len(tokens))])
		if !s.IsAuthenticated() {
			return fmt.Errorf("seeded session resumed anonymous")
		}
		return nil
	})

	commitStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		s := manager.Begin(ctx, tokens[r.Intn(len(tokens))])
		s.SetAttribute("last_seen", time.Now().Format(time.RFC3339))
		manager.Commit(ctx, s)
		return nil
	})

	fmt.Println("---- results ----")
	printStats("resume", resumeStats)
	printStats("commit", commitStats)

	snap := manager.MetricsSnapshot()
	fmt.Printf("resumed_durable=%d commit_success=%d commit_failure=%d durable_fallback=%d\n",
		snap.Counters[sessionauth.MetricSessionResumedDurable],
		snap.Counters[sessionauth.MetricCommitSuccess],
		snap.Counters[sessionauth.MetricCommitFailure],
		snap.Counters[sessionauth.MetricDurableFallback],
	)
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
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

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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

// syntheticDirectory accepts every user id; the loadtest measures session
// plumbing, not directory lookups.
type syntheticDirectory struct{}

func (syntheticDirectory) UserByID(_ context.Context, userID string) (identity.UserRecord, error) {
	return identity.UserRecord{
		UserID:        userID,
		Enabled:       true,
		PermissionIDs: []string{"orders.read"},
	}, nil
}

func (syntheticDirectory) PermissionsByIDs(_ context.Context, ids []string) ([]identity.Permission, error) {
	out := make([]identity.Permission, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Permission{ID: id, Code: id})
	}
	return out, nil
}

func (syntheticDirectory) RolesByIDs(_ context.Context, ids []string) ([]identity.Role, error) {
	return nil, nil
}
