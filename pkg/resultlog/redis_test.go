package resultlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPublish_Success(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, Channel("users"))
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	p := NewRedisPublisher(Config{Address: mr.Addr(), Name: "users", TTL: 60})
	defer p.Close()

	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	err := p.Publish(ctx, RunResult{
		ConfigName:    "users.yaml",
		RunID:         "run-1",
		StartedAt:     start,
		FinishedAt:    start.Add(1500 * time.Millisecond),
		RowsGenerated: 1000,
		Columns:       []string{"id", "status"},
	}, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	raw, err := mr.Get(StateKey("users"))
	if err != nil {
		t.Fatal(err)
	}
	var got RunResult
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusSuccess || got.ResultName != "users" || got.DurationMs != 1500 || got.RowsGenerated != 1000 {
		t.Errorf("state = %+v", got)
	}
	if got.Error != nil {
		t.Errorf("unexpected error field: %s", *got.Error)
	}
	if ttl := mr.TTL(StateKey("users")); ttl != 60*time.Second {
		t.Errorf("TTL = %v, want 60s", ttl)
	}

	select {
	case msg := <-ps.Channel():
		if msg.Payload != raw {
			t.Errorf("event payload differs from state")
		}
	case <-time.After(2 * time.Second):
		t.Error("no event received")
	}
}

func TestPublish_Failed(t *testing.T) {
	mr := miniredis.RunT(t)
	p := NewRedisPublisher(Config{Address: mr.Addr(), Name: "orders"})
	defer p.Close()

	if err := p.Publish(context.Background(), RunResult{RunID: "r"}, errors.New("step 2 failed")); err != nil {
		t.Fatal(err)
	}

	raw, _ := mr.Get(StateKey("orders"))
	var got RunResult
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed || got.Error == nil || *got.Error != "step 2 failed" {
		t.Errorf("state = %+v", got)
	}
	if mr.TTL(StateKey("orders")) != 0 {
		t.Error("ttl 0 should keep key without expiry")
	}
}

func TestPublish_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	p := NewRedisPublisher(Config{Address: addr, Name: "x"})
	defer p.Close()
	if err := p.Publish(context.Background(), RunResult{}, nil); err == nil {
		t.Error("expected error with redis down")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Type: "redis", Address: "localhost:6379", Name: "users", TTL: 10}, false},
		{"type defaults", Config{Address: "localhost:6379", Name: "users"}, false},
		{"bad type", Config{Type: "kafka", Address: "a", Name: "n"}, true},
		{"no address", Config{Name: "n"}, true},
		{"no name", Config{Address: "a"}, true},
		{"negative ttl", Config{Address: "a", Name: "n", TTL: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
