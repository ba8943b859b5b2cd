package qdb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/protocol"
	"github.com/ValentinKolb/dbnetget/rpc/transport"
	lru "github.com/hashicorp/golang-lru/v2"
	gometrics "github.com/rcrowley/go-metrics"
	"golang.org/x/time/rate"
)

const (
	EngineDefault    = "default"
	EngineConcurrent = "concurrent"

	MaxConcurrency = 200

	maxLineSize = 1 << 20
)

// executor runs a transaction, *client.ClientPool in production
type executor interface {
	Execute(tx transport.Transaction) (transport.Transaction, error)
}

// RunnerConfig configures how input lines are turned into transactions
type RunnerConfig struct {
	// Command is the registered protocol name (get, test)
	Command string
	// Engine is EngineDefault (one line at a time) or EngineConcurrent
	Engine string
	// Concurrency is the number of workers of the concurrent engine
	Concurrency int
	// Rate limits transactions per second (0 = unlimited)
	Rate float64
	// Dedup is the size of the cache of recent results per key (0 = off)
	Dedup int
}

// Runner reads keys line by line, executes one transaction per key and hands
// the outcome to the processor
type Runner struct {
	config    RunnerConfig
	pool      executor
	registry  *protocol.Registry
	processor Processor

	limiter *rate.Limiter
	dedup   *lru.Cache[protocol.Key, protocol.Protocol]
	stats   *runStats

	procMu sync.Mutex // Processors write to a shared output
}

// NewRunner creates a runner for the given configuration
func NewRunner(config RunnerConfig, pool executor, registry *protocol.Registry, processor Processor) (*Runner, error) {
	switch config.Engine {
	case "", EngineDefault:
		config.Engine = EngineDefault
	case EngineConcurrent:
		if config.Concurrency < 1 || config.Concurrency > MaxConcurrency {
			return nil, fmt.Errorf("concurrency must be in [1, %d], got %d", MaxConcurrency, config.Concurrency)
		}
	default:
		return nil, fmt.Errorf("invalid engine %s (expected %s or %s)", config.Engine, EngineDefault, EngineConcurrent)
	}

	// fail early on unknown protocols
	if _, err := registry.Create(config.Command, protocol.Key{}); err != nil {
		return nil, err
	}

	r := &Runner{
		config:    config,
		pool:      pool,
		registry:  registry,
		processor: processor,
		stats:     newRunStats(),
	}

	if config.Rate > 0 {
		burst := int(config.Rate)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(config.Rate), burst)
	}

	if config.Dedup > 0 {
		cache, err := lru.New[protocol.Key, protocol.Protocol](config.Dedup)
		if err != nil {
			return nil, err
		}
		r.dedup = cache
	}

	return r, nil
}

// Run processes input until it is exhausted, ctx is done or the pool fails.
// An interrupted run is not an error.
func (r *Runner) Run(ctx context.Context, input io.Reader) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var err error
	if r.config.Engine == EngineConcurrent {
		err = r.runConcurrent(ctx, scanner)
	} else {
		err = r.runDefault(ctx, scanner)
	}

	if ctx.Err() != nil {
		Logger.Infof("Run interrupted")
		return nil
	}
	return err
}

// WriteStats writes a summary of the run to w
func (r *Runner) WriteStats(w io.Writer) {
	r.stats.write(w)
}

// --------------------------------------------------------------------------
// Engines
// --------------------------------------------------------------------------

func (r *Runner) runDefault(ctx context.Context, scanner *bufio.Scanner) error {
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.runLine(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (r *Runner) runConcurrent(parent context.Context, scanner *bufio.Scanner) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	lines := make(chan string, r.config.Concurrency)
	for i := 0; i < r.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for line := range lines {
				if err := r.runLine(ctx, line); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
			}
		}()
	}

read:
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			break read
		}
	}
	close(lines)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return scanner.Err()
}

// runLine executes the transaction for one input line. Only pool failures are returned.
func (r *Runner) runLine(ctx context.Context, line string) error {
	data := strings.TrimSpace(line)
	if data == "" {
		return nil
	}

	key, err := protocol.ParseKey(data)
	if err != nil {
		Logger.Debugf("Skipping line: %v", err)
		return r.process(data, nil)
	}

	if r.dedup != nil {
		if proto, ok := r.dedup.Get(key); ok {
			r.stats.dedupHits.Mark(1)
			return r.process(data, proto)
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	proto, err := r.registry.Create(r.config.Command, key)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = r.pool.Execute(proto)
	r.stats.execute.UpdateSince(start)
	if err != nil {
		Logger.Errorf("Failed to execute %s %s: %v", proto.Name(), data, err)
		return err
	}

	if r.dedup != nil {
		r.dedup.Add(key, proto)
	}
	return r.process(data, proto)
}

func (r *Runner) process(data string, proto protocol.Protocol) error {
	r.procMu.Lock()
	defer r.procMu.Unlock()

	status, err := r.processor.Process(data, proto)
	r.stats.mark(status)
	if err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// runStats collects timings and status counts of a run
type runStats struct {
	registry  gometrics.Registry
	execute   gometrics.Timer
	dedupHits gometrics.Meter
}

func newRunStats() *runStats {
	registry := gometrics.NewRegistry()
	return &runStats{
		registry:  registry,
		execute:   gometrics.NewRegisteredTimer("execute", registry),
		dedupHits: gometrics.NewRegisteredMeter("dedup.hits", registry),
	}
}

func (s *runStats) mark(status string) {
	gometrics.GetOrRegisterMeter("status."+status, s.registry).Mark(1)
}

// count returns how often status was reported
func (s *runStats) count(status string) int64 {
	if m, ok := s.registry.Get("status." + status).(gometrics.Meter); ok {
		return m.Count()
	}
	return 0
}

func (s *runStats) write(w io.Writer) {
	var statuses []string
	s.registry.Each(func(name string, _ interface{}) {
		if status, ok := strings.CutPrefix(name, "status."); ok {
			statuses = append(statuses, status)
		}
	})
	sort.Strings(statuses)

	fmt.Fprintf(w, "\nSTATISTICS\n")
	fmt.Fprintf(w, "  %-22s: %d\n", "Executed", s.execute.Count())
	if s.execute.Count() > 0 {
		fmt.Fprintf(w, "  %-22s: %s\n", "Mean Latency", time.Duration(s.execute.Mean()))
		fmt.Fprintf(w, "  %-22s: %s\n", "P99 Latency", time.Duration(s.execute.Percentile(0.99)))
		fmt.Fprintf(w, "  %-22s: %.1f/s\n", "Rate (1m)", s.execute.Rate1())
	}
	if hits := s.dedupHits.Count(); hits > 0 {
		fmt.Fprintf(w, "  %-22s: %d\n", "Dedup Hits", hits)
	}
	for _, status := range statuses {
		fmt.Fprintf(w, "  %-22s: %d\n", "Status "+status, s.count(status))
	}
}
