package runner

import (
	"testing"
	"time"
)

func TestCompileRateScheduleRamp(t *testing.T) {
	sched := compileRateSchedule([]RatePattern{
		{
			Type:     RatePatternRamp,
			FromRate: 10,
			ToRate:   110,
			Duration: 10 * time.Second,
		},
	})
	if sched == nil {
		t.Fatalf("expected schedule")
	}
	if sched.length != 10*time.Second {
		t.Fatalf("length = %s", sched.length)
	}
	mps, ok := sched.rateAt(5 * time.Second)
	if !ok {
		t.Fatalf("rateAt returned false")
	}
	if mps < 60 || mps > 61 {
		t.Fatalf("unexpected ramp rate: %f", mps)
	}
}

func TestCompileRateScheduleStepAndSpike(t *testing.T) {
	sched := compileRateSchedule([]RatePattern{
		{
			Type: RatePatternStep,
			Steps: []RateStep{
				{Rate: 50, Duration: time.Second},
				{Rate: 100, Duration: 2 * time.Second},
			},
		},
		{
			Type:     RatePatternSpike,
			Rate:     500,
			Duration: 500 * time.Millisecond,
		},
	})
	if sched == nil {
		t.Fatalf("expected schedule")
	}
	if sched.length != 3500*time.Millisecond {
		t.Fatalf("length = %s", sched.length)
	}
	mps, ok := sched.rateAt(1500 * time.Millisecond)
	if !ok {
		t.Fatalf("rateAt false")
	}
	if mps != 100 {
		t.Fatalf("expected 100, got %f", mps)
	}
	mps, ok = sched.rateAt(3200 * time.Millisecond)
	if !ok {
		t.Fatalf("rateAt false for spike")
	}
	if mps != 500 {
		t.Fatalf("expected spike rate 500, got %f", mps)
	}
}

func TestRateScheduleAfterEnd(t *testing.T) {
	sched := compileRateSchedule([]RatePattern{{
		Type:     RatePatternSpike,
		Rate:     100,
		Duration: time.Second,
	}})
	if sched == nil {
		t.Fatalf("schedule nil")
	}
	if _, ok := sched.rateAt(2 * time.Second); ok {
		t.Fatalf("expected no rate after end")
	}
}

func TestCompileRateScheduleEmpty(t *testing.T) {
	if sched := compileRateSchedule(nil); sched != nil {
		t.Fatalf("expected nil schedule for no patterns")
	}
	// Zero-duration segments compile to nothing.
	if sched := compileRateSchedule([]RatePattern{{Type: RatePatternSpike, Rate: 10}}); sched != nil {
		t.Fatalf("expected nil schedule for zero durations")
	}
}
