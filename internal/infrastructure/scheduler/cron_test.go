package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestCronFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "0 0 * * *"},
		{time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC), "0 9 * * *"},
		{time.Date(2024, 3, 5, 17, 0, 0, 0, time.FixedZone("CST", 8*3600)), "0 9 * * *"},
	}
	for _, tc := range cases {
		if got := CronFor(tc.in); got != tc.want {
			t.Errorf("CronFor(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDriverFiresAtHourBoundary(t *testing.T) {
	t.Parallel()

	d := NewHourlyDriver()
	// Pin "now" just before an hour boundary so the first tick is imminent.
	boundary := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return boundary.Add(-10 * time.Millisecond) }

	fired := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The pinned clock keeps the boundary imminent, so the driver may fire
	// more than once; drop extras instead of blocking the tick loop.
	if err := d.Start(ctx, func(cron string) {
		select {
		case fired <- cron:
		default:
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = d.Stop(context.Background()) }()

	select {
	case cron := <-fired:
		if cron != "0 10 * * *" {
			t.Errorf("fired with %q, want %q", cron, "0 10 * * *")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("driver did not fire")
	}
}

func TestDriverStopIsIdempotent(t *testing.T) {
	t.Parallel()

	d := NewHourlyDriver()
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
	if err := d.Start(context.Background(), func(string) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestDriverRejectsNilJob(t *testing.T) {
	t.Parallel()

	if err := NewHourlyDriver().Start(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil job")
	}
}
