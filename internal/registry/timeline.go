package registry

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// Intensity reduces a recorded command to a single 0..1 magnitude for
// timeline rendering: first scalar strength, first vector position, or
// first rotation speed. Non-motion records report zero.
func (rec Recorded) Intensity() float64 {
	switch {
	case rec.Message.ScalarCmd != nil && len(rec.Message.ScalarCmd.Scalars) > 0:
		return rec.Message.ScalarCmd.Scalars[0].Scalar
	case rec.Message.LinearCmd != nil && len(rec.Message.LinearCmd.Vectors) > 0:
		return rec.Message.LinearCmd.Vectors[0].Position
	case rec.Message.RotateCmd != nil && len(rec.Message.RotateCmd.Rotations) > 0:
		return rec.Message.RotateCmd.Rotations[0].Speed
	default:
		return 0
	}
}

// Timeline writes a human-readable per-device command timeline, one row
// per record with its offset from start and an intensity bar.
func (r *Registry) Timeline(w io.Writer, index uint32, start time.Time) {
	fmt.Fprintf(w, "device %d\n", index)
	for i, rec := range r.Calls(index) {
		offset := rec.Time.Sub(start).Milliseconds()
		percent := int(math.Round(rec.Intensity() * 100))
		bar := strings.Repeat("=", percent/5)
		fmt.Fprintf(w, " %02d @%04d ms %3d%% %s\n", i, offset, percent, bar)
	}
	fmt.Fprintln(w)
}

// DumpTimelines renders every recorded device in ascending index order.
func (r *Registry) DumpTimelines(w io.Writer, start time.Time) {
	for _, index := range r.Devices() {
		r.Timeline(w, index, start)
	}
}
