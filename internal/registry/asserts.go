package registry

import (
	"testing"
	"time"

	"hapticrig/simulator/internal/message"
)

// Tolerances for timing assertions. Command durations and arrival
// instants drift under scheduler load, values never do.
const (
	DurationToleranceMs  = 10
	TimestampToleranceMs = 25
)

// AssertStrength fails the test unless every scalar subcommand carries
// exactly the expected strength. Returns the record for chaining.
func (rec Recorded) AssertStrength(t testing.TB, strength float64) Recorded {
	t.Helper()
	cmd := rec.scalarCmd(t)
	for _, sub := range cmd.Scalars {
		if sub.Scalar != strength {
			t.Fatalf("actuator #%d: strength %v, want %v", sub.Index, sub.Scalar, strength)
		}
	}
	return rec
}

// AssertStrengths checks per-actuator strengths and that the command
// addresses exactly the expected actuators.
func (rec Recorded) AssertStrengths(t testing.TB, strengths map[uint32]float64) Recorded {
	t.Helper()
	cmd := rec.scalarCmd(t)
	if len(cmd.Scalars) != len(strengths) {
		t.Fatalf("command addresses %d actuators, want %d", len(cmd.Scalars), len(strengths))
	}
	for index, want := range strengths {
		found := false
		for _, sub := range cmd.Scalars {
			if sub.Index != index {
				continue
			}
			found = true
			if sub.Scalar != want {
				t.Fatalf("actuator #%d: strength %v, want %v", index, sub.Scalar, want)
			}
		}
		if !found {
			t.Fatalf("actuator #%d: no subcommand recorded", index)
		}
	}
	return rec
}

// AssertPosition fails unless every vector targets exactly the position.
func (rec Recorded) AssertPosition(t testing.TB, position float64) Recorded {
	t.Helper()
	cmd := rec.linearCmd(t)
	for _, sub := range cmd.Vectors {
		if sub.Position != position {
			t.Fatalf("actuator #%d: position %v, want %v", sub.Index, sub.Position, position)
		}
	}
	return rec
}

// AssertDuration fails unless every vector duration lies within the
// fixed tolerance of the expected milliseconds.
func (rec Recorded) AssertDuration(t testing.TB, durationMs uint32) Recorded {
	t.Helper()
	cmd := rec.linearCmd(t)
	for _, sub := range cmd.Vectors {
		actual := int64(sub.Duration)
		want := int64(durationMs)
		if actual < want-DurationToleranceMs || actual > want+DurationToleranceMs {
			t.Fatalf("actuator #%d: duration %dms is not %dms +/-%d", sub.Index, actual, want, DurationToleranceMs)
		}
	}
	return rec
}

// AssertRotation fails unless every motor runs at exactly the speed.
func (rec Recorded) AssertRotation(t testing.TB, speed float64) Recorded {
	t.Helper()
	cmd := rec.rotateCmd(t)
	for _, sub := range cmd.Rotations {
		if sub.Speed != speed {
			t.Fatalf("motor #%d: speed %v, want %v", sub.Index, sub.Speed, speed)
		}
	}
	return rec
}

// AssertDirection fails unless every motor turns the expected way.
func (rec Recorded) AssertDirection(t testing.TB, clockwise bool) Recorded {
	t.Helper()
	cmd := rec.rotateCmd(t)
	for _, sub := range cmd.Rotations {
		if sub.Clockwise != clockwise {
			t.Fatalf("motor #%d: clockwise=%v, want %v", sub.Index, sub.Clockwise, clockwise)
		}
	}
	return rec
}

// AssertTimestamp fails unless the record arrived within tolerance of
// the expected offset from the given start instant.
func (rec Recorded) AssertTimestamp(t testing.TB, offsetMs int64, start time.Time) Recorded {
	t.Helper()
	elapsed := rec.Time.Sub(start).Milliseconds()
	if elapsed < offsetMs-TimestampToleranceMs || elapsed > offsetMs+TimestampToleranceMs {
		t.Fatalf("arrived %dms after start, want %dms +/-%d", elapsed, offsetMs, TimestampToleranceMs)
	}
	return rec
}

// VibrationStopped reports whether every scalar in the command is zero.
func (rec Recorded) VibrationStopped() bool {
	cmd := rec.Message.ScalarCmd
	if cmd == nil {
		return false
	}
	for _, sub := range cmd.Scalars {
		if sub.Scalar != 0 {
			return false
		}
	}
	return true
}

// AssertUnused fails the test when any command was recorded for the
// device, proving a pattern did not address it.
func (r *Registry) AssertUnused(t testing.TB, index uint32) {
	t.Helper()
	if calls := r.Calls(index); len(calls) != 0 {
		t.Fatalf("device %d: expected no recorded commands, got %d (first: %s)", index, len(calls), calls[0].Message.String())
	}
}

func (rec Recorded) scalarCmd(t testing.TB) *message.ScalarCmd {
	t.Helper()
	if rec.Message.ScalarCmd == nil {
		t.Fatalf("recorded message is %s, not ScalarCmd", rec.Message.Kind())
	}
	return rec.Message.ScalarCmd
}

func (rec Recorded) linearCmd(t testing.TB) *message.LinearCmd {
	t.Helper()
	if rec.Message.LinearCmd == nil {
		t.Fatalf("recorded message is %s, not LinearCmd", rec.Message.Kind())
	}
	return rec.Message.LinearCmd
}

func (rec Recorded) rotateCmd(t testing.TB) *message.RotateCmd {
	t.Helper()
	if rec.Message.RotateCmd == nil {
		t.Fatalf("recorded message is %s, not RotateCmd", rec.Message.Kind())
	}
	return rec.Message.RotateCmd
}
