package app

import (
	"testing"

	"golang.org/x/time/rate"

	"github.com/zamanbank/assistant/internal/config"
	"github.com/zamanbank/assistant/internal/log"
)

func TestCloseWithNilFields(t *testing.T) {
	a := &App{Logger: log.NewNop()}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() on empty app = %v", err)
	}
}

func TestCloseCancelsBackground(t *testing.T) {
	cancelled := false
	a := &App{Logger: log.NewNop(), cancel: func() { cancelled = true }}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if !cancelled {
		t.Error("Close() did not cancel background context")
	}
}

func TestProvideLimiter(t *testing.T) {
	tests := []struct {
		name      string
		perMinute float64
		wantRate  rate.Limit
		wantBurst int
	}{
		{"default", 60, rate.Limit(1), 60},
		{"slow", 30, rate.Limit(0.5), 30},
		{"zero falls back", 0, rate.Limit(1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := provideLimiter(&config.Config{ModelRatePerMinute: tt.perMinute})
			if l.Limit() != tt.wantRate {
				t.Errorf("rate = %v, want %v", l.Limit(), tt.wantRate)
			}
			if l.Burst() != tt.wantBurst {
				t.Errorf("burst = %d, want %d", l.Burst(), tt.wantBurst)
			}
		})
	}
}
