package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

var errFlaky = errors.New("model server restarting")

func fastRetry(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func flakyIsTransient(err error) ErrorClassification {
	if errors.Is(err, errFlaky) {
		return Transient
	}
	return Permanent
}

type recordingObserver struct {
	mu      sync.Mutex
	retries map[string]int
	states  []string
}

func (o *recordingObserver) ObserveRetry(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.retries == nil {
		o.retries = map[string]int{}
	}
	o.retries[operation]++
}

func (o *recordingObserver) ObserveBreakerState(operation, state string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, operation+":"+state)
}

func TestEmbedCallRetriesUntilSuccess(t *testing.T) {
	obs := &recordingObserver{}
	exec := NewExecutor(fastRetry(3), Options{Observer: obs})

	attempts := 0
	vectors, err := Do(context.Background(), exec, "ollama.embed", func(context.Context) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errFlaky
		}
		return [][]float32{{0.1, 0.2}}, nil
	}, flakyIsTransient)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 || len(vectors) != 1 {
		t.Fatalf("attempts=%d vectors=%v", attempts, vectors)
	}
	if obs.retries["ollama.embed"] != 2 {
		t.Fatalf("expected 2 observed retries, got %v", obs.retries)
	}
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	exec := NewExecutor(fastRetry(3), Options{})

	attempts := 0
	errBadModel := errors.New("model not found")
	err := exec.Execute(context.Background(), "ollama.generate", func(context.Context) error {
		attempts++
		return errBadModel
	}, flakyIsTransient)
	if !errors.Is(err, errBadModel) {
		t.Fatalf("expected model error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestBreakerOpensAndReportsState(t *testing.T) {
	obs := &recordingObserver{}
	cfg := fastRetry(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg, Options{Observer: obs})

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "rerank.score", func(context.Context) error {
			return errFlaky
		}, nil)
		if !errors.Is(err, errFlaky) {
			t.Fatalf("iteration %d: expected flaky error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "rerank.score", func(context.Context) error {
		t.Fatal("open breaker must not call the scorer")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if len(obs.states) != 1 || obs.states[0] != "rerank.score:open" {
		t.Fatalf("unexpected breaker states: %v", obs.states)
	}

	// other operations keep their own breaker
	if err := exec.Execute(context.Background(), "ollama.embed", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("independent breaker should be closed: %v", err)
	}
}

func TestCallerCancellationDoesNotTripBreaker(t *testing.T) {
	cfg := fastRetry(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 1
	cfg.BreakerFailureRatio = 0.1
	exec := NewExecutor(cfg, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "ollama.generate", func(context.Context) error {
			return ctx.Err()
		}, nil)
	}
	if err := exec.Execute(context.Background(), "ollama.generate", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("breaker tripped on caller cancellation: %v", err)
	}
}

func TestAttemptTimeoutIsRetried(t *testing.T) {
	cfg := fastRetry(2)
	cfg.CallTimeout = 10 * time.Millisecond
	exec := NewExecutor(cfg, Options{})

	attempts := 0
	err := exec.Execute(context.Background(), "ollama.generate", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected success on second attempt, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestAttemptTimeoutIsReported(t *testing.T) {
	cfg := fastRetry(1)
	cfg.CallTimeout = 5 * time.Millisecond
	exec := NewExecutor(cfg, Options{})

	err := exec.Execute(context.Background(), "ollama.generate", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	if !errors.Is(err, ErrCallTimeout) {
		t.Fatalf("expected call timeout, got %v", err)
	}
}

func TestNilExecutorRunsOnce(t *testing.T) {
	var exec *Executor
	calls := 0
	got, err := Do(context.Background(), exec, "op", func(context.Context) (int, error) {
		calls++
		return 42, nil
	}, nil)
	if err != nil || got != 42 || calls != 1 {
		t.Fatalf("unexpected result: got=%d err=%v calls=%d", got, err, calls)
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     350 * time.Millisecond,
		RetryMultiplier:     2,
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := cfg.Backoff(i + 1); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	got := Config{CallTimeout: -time.Second, RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	if got.CallTimeout != 0 {
		t.Fatalf("negative timeout should clamp to 0, got %s", got.CallTimeout)
	}
	if got.RetryMaxBackoff != time.Second {
		t.Fatalf("max backoff should be raised to initial, got %s", got.RetryMaxBackoff)
	}
	def := DefaultConfig()
	if got.RetryMaxAttempts != def.RetryMaxAttempts || got.BreakerMinRequests != def.BreakerMinRequests {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestWrapTemporary(t *testing.T) {
	if err := WrapTemporary("embed", nil, nil); err != nil {
		t.Fatalf("nil should stay nil, got %v", err)
	}

	wrapped := WrapTemporary("embed", errFlaky, flakyIsTransient)
	if !domain.IsKind(wrapped, domain.ErrTemporary) || !errors.Is(wrapped, errFlaky) {
		t.Fatalf("transient error should become temporary: %v", wrapped)
	}
	if again := WrapTemporary("embed", wrapped, flakyIsTransient); again != wrapped {
		t.Fatalf("already temporary error should be returned as is")
	}

	permanent := errors.New("bad request")
	if got := WrapTemporary("embed", permanent, flakyIsTransient); got != permanent {
		t.Fatalf("permanent error should pass through, got %v", got)
	}
	if got := WrapTemporary("embed", gobreaker.ErrOpenState, nil); !domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("open breaker should be temporary, got %v", got)
	}
	if got := WrapTemporary("embed", context.Canceled, nil); domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("caller cancellation must not be temporary")
	}
}
