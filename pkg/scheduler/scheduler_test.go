package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestRegister_InvalidSchedule(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.Register("allocations", "not a cron expr", &countingJob{}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRegister_ValidSchedule(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.Register("allocations", "0 6 1 * *", &countingJob{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(s.entries))
	}
}

func TestRegister_ReplaceKeepsOneEntry(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.Register("allocations", "0 6 1 * *", &countingJob{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("allocations", "30 7 1 * *", &countingJob{}); err != nil {
		t.Fatal(err)
	}
	if len(s.entries) != 1 {
		t.Errorf("expected the entry to be replaced, got %d entries", len(s.entries))
	}
	if got := len(s.cron.Entries()); got != 1 {
		t.Errorf("stale cron entry left behind, got %d", got)
	}
}

func TestStartStop(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.Register("allocations", "@every 1h", &countingJob{}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop()
}
