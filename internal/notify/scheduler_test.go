package notify

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerRetriesUntilDelivered(t *testing.T) {
	mailer := &fakeMailer{fail: map[string]bool{"ion@example.com": true}}
	s := NewScheduler(NewDispatcher(newSource(t), staticRates{}, mailer, memDeduper{}, "", discard), time.Hour, discard)
	ctx := context.Background()

	reports := s.Tick(ctx)
	if len(reports) != 1 || reports[0].Window != Window30Days || reports[0].OK() {
		t.Fatalf("first Tick() = %+v", reports)
	}

	mailer.fail = nil
	reports = s.Tick(ctx)
	if len(reports) != 1 || reports[0].Sent != 1 || reports[0].Skipped != 1 {
		t.Fatalf("second Tick() = %+v", reports)
	}

	if reports = s.Tick(ctx); len(reports) != 0 {
		t.Errorf("third Tick() = %+v, want nothing due", reports)
	}
}

func TestSchedulerMonthOnFirstDay(t *testing.T) {
	src := newSource(t)
	src.SetClock(func() time.Time { return time.Date(2026, 10, 1, 7, 0, 0, 0, time.UTC) })
	mailer := &fakeMailer{}
	s := NewScheduler(NewDispatcher(src, staticRates{}, mailer, nil, "", discard), time.Hour, discard)

	reports := s.Tick(context.Background())
	if len(reports) != 2 {
		t.Fatalf("Tick() = %+v, want both windows", reports)
	}
	if reports[0].Window != Window30Days || reports[0].Users != 0 {
		t.Errorf("30d report = %+v", reports[0])
	}
	if reports[1].Window != WindowMonth || reports[1].Users != 1 || reports[1].Sent != 1 {
		t.Errorf("month report = %+v", reports[1])
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "ion@example.com" {
		t.Errorf("sent = %v", mailer.sent)
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s := NewScheduler(NewDispatcher(newSource(t), staticRates{}, &fakeMailer{}, nil, "", discard), time.Millisecond, discard)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.loop(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestSchedulerIntervalDefault(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Minute} {
		if s := NewScheduler(nil, d, discard); s.interval != time.Hour {
			t.Errorf("NewScheduler(%v).interval = %v, want 1h", d, s.interval)
		}
	}
}
