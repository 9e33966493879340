package audio

import (
	"math"
	"time"
)

type noteState int

const (
	stateHeld noteState = iota
	stateReleased
	stateFinished
)

func (s noteState) String() string {
	switch s {
	case stateHeld:
		return "held"
	case stateReleased:
		return "released"
	default:
		return "finished"
	}
}

// spawnNow makes a new note emit its first grain on the first frame.
const spawnNow = time.Duration(math.MaxInt64 / 2)

// Note is one sounding voice. It moves from held to released on note off and
// finishes once its release time has passed.
type Note struct {
	Key      uint8
	velocity float64
	envelope AdsrEnvelope
	state    noteState
	elapsed  time.Duration // time spent in the current state

	sinceLastGrain time.Duration

	// gen is bumped each time the note is reused from the emitter's pool.
	gen uint32
}

func newNote(key, velocity uint8, env AdsrEnvelope) *Note {
	n := new(Note)
	n.reset(key, velocity, env)
	return n
}

// reset starts a new held note in place.
func (n *Note) reset(key, velocity uint8, env AdsrEnvelope) {
	*n = Note{
		Key:            key,
		velocity:       float64(velocity) / 127,
		envelope:       env,
		state:          stateHeld,
		sinceLastGrain: spawnNow,
		gen:            n.gen + 1,
	}
}

func (n *Note) release() {
	if n.state == stateHeld {
		n.state = stateReleased
		n.elapsed = 0
	}
}

func (n *Note) finish() {
	n.state = stateFinished
}

func (n *Note) Held() bool     { return n.state == stateHeld }
func (n *Note) Finished() bool { return n.state == stateFinished }

// update advances the note by dt.
func (n *Note) update(dt time.Duration) {
	if n.state == stateFinished {
		return
	}
	n.elapsed += dt
	n.sinceLastGrain += dt
	if n.state == stateReleased && n.elapsed >= n.envelope.Release {
		n.state = stateFinished
	}
}

// Amplitude is the current envelope level scaled by velocity.
func (n *Note) Amplitude() float64 {
	switch n.state {
	case stateHeld:
		return n.velocity * n.envelope.HeldAmplitude(n.elapsed)
	case stateReleased:
		return n.velocity * n.envelope.ReleasedAmplitude(n.elapsed)
	default:
		return 0
	}
}
