package audio

import (
	"sort"
	"time"
)

// ScoreNote is a key held for Length, starting At from the start of a score.
type ScoreNote struct {
	At       time.Duration
	Key      uint8
	Velocity uint8
	Length   time.Duration
}

// Score is a list of notes for offline rendering.
type Score struct {
	notes []ScoreNote
}

// AddNote adds a note. Notes with an invalid key or a negative time are
// ignored.
func (s *Score) AddNote(at time.Duration, key, velocity uint8, length time.Duration) {
	if key > 127 || at < 0 || length < 0 {
		return
	}
	s.notes = append(s.notes, ScoreNote{At: at, Key: key, Velocity: velocity, Length: length})
}

// Length returns the time at which the last note is released.
func (s *Score) Length() time.Duration {
	var end time.Duration
	for _, n := range s.notes {
		if e := n.At + n.Length; e > end {
			end = e
		}
	}
	return end
}

type scoreEvent struct {
	frame    int
	on       bool
	key      uint8
	velocity uint8
}

// events returns note on and off events ordered by frame. At equal frames
// note offs come first so a key can be struck again where it was released.
func (s *Score) events(sampleRate int) []scoreEvent {
	events := make([]scoreEvent, 0, 2*len(s.notes))
	for _, n := range s.notes {
		start := toFrames(n.At, sampleRate)
		events = append(events,
			scoreEvent{frame: start, on: true, key: n.Key, velocity: n.Velocity},
			scoreEvent{frame: start + toFrames(n.Length, sampleRate), key: n.Key},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].frame != events[j].frame {
			return events[i].frame < events[j].frame
		}
		return !events[i].on && events[j].on
	})
	return events
}

// RenderScore plays a score on an emitter that is not attached to a sink and
// appends the interleaved output, including tail after the last release, to
// dst. Each event takes effect at its exact frame.
func RenderScore[S Sample](e *Emitter[S], score *Score, tail time.Duration, dst []S) []S {
	rate := e.SampleRate()
	frame := 0
	for _, ev := range score.events(rate) {
		dst = Render(e, ev.frame-frame, dst)
		frame = ev.frame
		if ev.on {
			e.NoteOn(ev.key, ev.velocity)
		} else {
			e.NoteOff(ev.key, 0)
		}
	}
	end := toFrames(score.Length()+tail, rate)
	return Render(e, max(end-frame, 0), dst)
}

func toFrames(d time.Duration, sampleRate int) int {
	return int(d.Seconds()*float64(sampleRate) + 0.5)
}
