package status

import "time"

var brailleFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner provides braille loading frames.
type Spinner struct {
	frame    int
	lastTick time.Time
	interval time.Duration
}

// NewSpinner creates a spinner on its first frame.
func NewSpinner() *Spinner {
	return &Spinner{
		lastTick: time.Now(),
		interval: 80 * time.Millisecond,
	}
}

// Tick advances the animation if the frame interval has passed.
// Returns true if the frame changed.
func (s *Spinner) Tick() bool {
	now := time.Now()
	if now.Sub(s.lastTick) >= s.interval {
		s.frame++
		s.lastTick = now
		return true
	}
	return false
}

// Reset returns the spinner to its first frame.
func (s *Spinner) Reset() {
	s.frame = 0
	s.lastTick = time.Now()
}

// Frame returns the current animation frame.
func (s *Spinner) Frame() string {
	return brailleFrames[s.frame%len(brailleFrames)]
}
