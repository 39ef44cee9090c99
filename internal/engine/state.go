package engine

import (
	"time"

	"github.com/vbragin/hoymiles-dtu/internal/model"
)

// inverterState is the engine's per-inverter scheduling bookkeeping. It
// holds no protocol scratch state across cycles — that lives in a fresh
// decode.Scratch for the duration of a single poll, per §9's design note.
type inverterState struct {
	serial     string
	descriptor model.Descriptor
	known      bool
	lastPoll   time.Time
}

func (s *inverterState) eligible(now time.Time, minInterval time.Duration) bool {
	return now.Sub(s.lastPoll) >= minInterval
}
