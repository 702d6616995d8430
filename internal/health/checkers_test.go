package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

func TestPingChecker(t *testing.T) {
	healthy := NewPingChecker("storage", func(context.Context) error { return nil }, 0)
	if check := healthy.Check(); check.Status != StatusHealthy || check.Name != "storage" {
		t.Errorf("expected healthy storage, got %+v", check)
	}

	failing := NewPingChecker("storage", func(context.Context) error {
		return errors.New("connection refused")
	}, time.Second)
	check := failing.Check()
	if check.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", check.Status)
	}
	if check.Message != "connection refused" {
		t.Errorf("unexpected message %q", check.Message)
	}
}

func TestPingChecker_Timeout(t *testing.T) {
	checker := NewPingChecker("storage", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	if check := checker.Check(); check.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy after timeout, got %s", check.Status)
	}
}

func TestOutboxBacklogChecker(t *testing.T) {
	stats := func(pending int, err error) OutboxStatsFunc {
		return func(context.Context) (domain.OutboxStats, error) {
			return domain.OutboxStats{PendingCount: pending, OldestPendingAt: time.Now()}, err
		}
	}

	tests := []struct {
		name string
		fn   OutboxStatsFunc
		max  int
		want Status
	}{
		{name: "below threshold", fn: stats(3, nil), max: 10, want: StatusHealthy},
		{name: "at threshold", fn: stats(10, nil), max: 10, want: StatusHealthy},
		{name: "above threshold", fn: stats(11, nil), max: 10, want: StatusDegraded},
		{name: "threshold disabled", fn: stats(1000, nil), max: 0, want: StatusHealthy},
		{name: "stats error", fn: stats(0, errors.New("db down")), max: 10, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewOutboxBacklogChecker("outbox", tt.fn, tt.max).Check()
			if check.Status != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, check.Status, check.Message)
			}
		})
	}
}
