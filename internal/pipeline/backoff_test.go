package pipeline

import (
	"testing"
	"time"
)

func TestBackoffDoublesPerRetry(t *testing.T) {
	cases := []struct {
		base  int
		retry int
		want  time.Duration
	}{
		{5, 1, 5 * time.Minute},
		{5, 2, 10 * time.Minute},
		{5, 3, 20 * time.Minute},
		{5, 4, 40 * time.Minute},
		{1, 1, time.Minute},
		{1, 5, 16 * time.Minute},
	}
	for _, tc := range cases {
		if got := Backoff(tc.base, tc.retry); got != tc.want {
			t.Fatalf("Backoff(%d, %d) = %v, want %v", tc.base, tc.retry, got, tc.want)
		}
	}
}

func TestBackoffFloorsBaseAndRetry(t *testing.T) {
	if got := Backoff(0, 1); got != time.Minute {
		t.Fatalf("zero base should floor to one minute, got %v", got)
	}
	if got := Backoff(-3, 2); got != 2*time.Minute {
		t.Fatalf("negative base should floor to one minute, got %v", got)
	}
	if got := Backoff(5, 0); got != 5*time.Minute {
		t.Fatalf("retry zero should use the base, got %v", got)
	}
}
