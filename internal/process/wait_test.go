package process

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWaitReady_ConfigValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     WaitReadyConfig
		wantMsg string
	}{
		"zero interval": {
			cfg:     WaitReadyConfig{Interval: 0, Timeout: time.Second, Name: "probe"},
			wantMsg: "interval must be positive",
		},
		"negative interval": {
			cfg:     WaitReadyConfig{Interval: -time.Second, Timeout: time.Second, Name: "probe"},
			wantMsg: "interval must be positive",
		},
		"zero timeout": {
			cfg:     WaitReadyConfig{Interval: time.Millisecond, Timeout: 0, Name: "probe"},
			wantMsg: "timeout must be positive",
		},
		"empty name": {
			cfg:     WaitReadyConfig{Interval: time.Millisecond, Timeout: time.Second},
			wantMsg: "name must not be empty",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := WaitReady(context.Background(), tc.cfg, func(_ context.Context, _ int) (bool, error) {
				t.Fatal("check should not be called with invalid config")
				return false, nil
			})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not contain %q", err, tc.wantMsg)
			}
		})
	}
}

func TestWaitReady_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "flaky",
	}, func(_ context.Context, attempt int) (bool, error) {
		return attempt >= 3, nil
	})
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
}

func TestWaitReady_FatalErrorAborts(t *testing.T) {
	t.Parallel()

	fatal := errors.New("unrecoverable")
	calls := 0
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "fatal",
	}, func(_ context.Context, _ int) (bool, error) {
		calls++
		return false, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("got %v, want wrapped %v", err, fatal)
	}
	if calls != 1 {
		t.Fatalf("check called %d times, want 1", calls)
	}
}

func TestWaitReady_TimesOut(t *testing.T) {
	t.Parallel()

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  20 * time.Millisecond,
		Name:     "never",
	}, func(_ context.Context, _ int) (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWaitReady_AbortsWhenProcessExits(t *testing.T) {
	t.Parallel()

	exited := make(chan struct{})
	close(exited)

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:      time.Millisecond,
		Timeout:       5 * time.Second,
		Name:          "dead",
		ProcessExited: exited,
	}, func(_ context.Context, _ int) (bool, error) {
		t.Fatal("check should not run once the process has exited")
		return false, nil
	})
	if !errors.Is(err, ErrProcessExited) {
		t.Fatalf("got %v, want ErrProcessExited", err)
	}
}
