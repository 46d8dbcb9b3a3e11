package retry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

func transient() error {
	return generr.Publish("test", true, errors.New("connection reset"))
}

func TestRetryer_Success(t *testing.T) {
	retryer, err := NewRetryer(Config{MaxRetries: 3, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	calls := 0
	attempts, err := retryer.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("Expected 1 attempt, got %d (calls %d)", attempts, calls)
	}
}

func TestRetryer_SuccessAfterRetries(t *testing.T) {
	var delays []time.Duration
	retryer, err := NewRetryer(Config{
		MaxRetries: 5,
		Delay:      time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	calls := 0
	attempts, err := retryer.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if len(delays) != 2 {
		t.Errorf("Expected OnRetry called 2 times, got %d", len(delays))
	}
}

func TestRetryer_FatalErrorNotRetried(t *testing.T) {
	retryer, err := NewRetryer(Config{MaxRetries: 5, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	fatal := generr.Publish("test", false, errors.New("encode failed"))
	calls := 0
	attempts, err := retryer.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, generr.ErrPublish) {
		t.Errorf("Expected PublishError, got %v", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Error("Fatal error must not be reported as exhaustion")
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("Expected a single attempt, got %d", attempts)
	}
}

func TestRetryer_Exhausted(t *testing.T) {
	retryer, err := NewRetryer(Config{MaxRetries: 2, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts, err := retryer.Do(context.Background(), func(ctx context.Context) error {
		return transient()
	})
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, generr.ErrPublish) {
		t.Errorf("Exhaustion must wrap the last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestRetryer_ZeroRetries(t *testing.T) {
	retryer, err := NewRetryer(Config{})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts, err := retryer.Do(context.Background(), func(ctx context.Context) error {
		return transient()
	})
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_CustomRetryable(t *testing.T) {
	retryer, err := NewRetryer(Config{
		MaxRetries: 2,
		Delay:      time.Millisecond,
		Retryable:  func(err error) bool { return true },
	})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts, _ := retryer.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("plain error")
	})
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_ContextCancelled(t *testing.T) {
	retryer, err := NewRetryer(Config{MaxRetries: 10, Delay: time.Second})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = retryer.Do(ctx, func(ctx context.Context) error {
		return transient()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Cancellation did not interrupt the retry delay")
	}
}

func TestRetryer_Delay(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		attempt int
		want    time.Duration
	}{
		{"constant", Config{Delay: 100 * time.Millisecond, Backoff: BackoffConstant}, 3, 100 * time.Millisecond},
		{"linear", Config{Delay: 100 * time.Millisecond, Backoff: BackoffLinear}, 3, 300 * time.Millisecond},
		{"exponential", Config{Delay: 100 * time.Millisecond, Backoff: BackoffExponential}, 3, 400 * time.Millisecond},
		{"exponential x3", Config{Delay: 100 * time.Millisecond, Backoff: BackoffExponential, Multiplier: 3}, 3, 900 * time.Millisecond},
		{"capped", Config{Delay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond, Backoff: BackoffExponential}, 5, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRetryer(tt.config)
			if err != nil {
				t.Fatalf("NewRetryer: %v", err)
			}
			if got := r.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryer_DelayJitter(t *testing.T) {
	r, err := NewRetryer(Config{Delay: 100 * time.Millisecond, Jitter: 0.5})
	if err != nil {
		t.Fatalf("NewRetryer: %v", err)
	}
	for i := 0; i < 100; i++ {
		d := r.Delay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("Delay with jitter out of bounds: %v", d)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"negative retries", Config{MaxRetries: -1}, true},
		{"negative delay", Config{Delay: -time.Second}, true},
		{"max below delay", Config{Delay: time.Second, MaxDelay: time.Millisecond}, true},
		{"bad backoff", Config{Backoff: "fibonacci"}, true},
		{"bad jitter", Config{Jitter: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseBackoff(t *testing.T) {
	tests := map[string]BackoffStrategy{
		"":             BackoffConstant,
		"Linear":       BackoffLinear,
		" exponential": BackoffExponential,
	}
	for in, want := range tests {
		got, err := ParseBackoff(in)
		if err != nil || got != want {
			t.Errorf("ParseBackoff(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestRetryer_ExhaustedGoesToDLQ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.json")
	retryer, err := NewRetryer(Config{MaxRetries: 1, Delay: time.Millisecond, DLQPath: path})
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	entry := &DLQEntry{Sink: "kafka", BatchIndex: 4, Offset: 400, Columns: []string{"id"}}
	_, err = retryer.DoWithData(context.Background(), func(ctx context.Context) error {
		return transient()
	}, entry)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted, got %v", err)
	}

	entries := retryer.DLQ().Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 DLQ entry, got %d", len(entries))
	}
	got := entries[0]
	if got.Sink != "kafka" || got.BatchIndex != 4 || got.Attempts != 2 {
		t.Errorf("Unexpected DLQ entry: %+v", got)
	}
	if got.LastError == "" || got.ID == "" {
		t.Errorf("DLQ entry must carry id and last error: %+v", got)
	}
}
