package runner

import (
	"math"
	"time"
)

// rateSchedule is a compiled rate-over-time profile: contiguous segments,
// each holding or interpolating a message rate.
type rateSchedule struct {
	segments []rateSegment
	length   time.Duration
}

type rateSegment struct {
	start    time.Duration
	duration time.Duration
	from     float64
	to       float64
}

func compileRateSchedule(patterns []RatePattern) *rateSchedule {
	if len(patterns) == 0 {
		return nil
	}

	sched := &rateSchedule{}
	var offset time.Duration
	add := func(d time.Duration, from, to float64) {
		if d <= 0 {
			return
		}
		sched.segments = append(sched.segments, rateSegment{
			start:    offset,
			duration: d,
			from:     from,
			to:       to,
		})
		offset += d
	}

	for _, p := range patterns {
		switch p.Type {
		case RatePatternRamp:
			add(p.Duration, float64(p.FromRate), float64(p.ToRate))
		case RatePatternStep:
			for _, step := range p.Steps {
				add(step.Duration, float64(step.Rate), float64(step.Rate))
			}
		case RatePatternSpike:
			add(p.Duration, float64(p.Rate), float64(p.Rate))
		}
	}

	if len(sched.segments) == 0 {
		return nil
	}
	sched.length = offset
	return sched
}

// rateAt returns the scheduled rate at elapsed, or ok=false once the
// schedule is exhausted.
func (s *rateSchedule) rateAt(elapsed time.Duration) (float64, bool) {
	if s == nil || len(s.segments) == 0 {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	for _, seg := range s.segments {
		if elapsed < seg.start || elapsed >= seg.start+seg.duration {
			continue
		}
		if seg.from == seg.to {
			return seg.from, true
		}
		progress := float64(elapsed-seg.start) / float64(seg.duration)
		progress = math.Min(math.Max(progress, 0), 1)
		return seg.from + (seg.to-seg.from)*progress, true
	}
	return 0, false
}
