package audio

import (
	"math"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type messageKind uint8

const (
	msgNoteOn messageKind = iota
	msgNoteOff
	msgControlChange
	msgParams
	msgClip
	msgTerminate
)

// message is a control plane event. key/velocity double as controller/value
// for control changes.
type message[S Sample] struct {
	kind     messageKind
	key      uint8
	velocity uint8
	params   *EmitterParams
	clip     *Clip[S]
}

// Rand is the random source used for spray.
type Rand interface {
	Float64() float64
}

type options struct {
	params     EmitterParams
	rand       Rand
	sampleRate int
	inboxSize  int
}

type Option func(*options)

// WithParams sets the initial parameters.
func WithParams(p EmitterParams) Option {
	return func(o *options) { o.params = p }
}

// WithRand sets the spray random source.
func WithRand(r Rand) Option {
	return func(o *options) { o.rand = r }
}

// WithSampleRate sets the output rate. It defaults to the clip's rate.
func WithSampleRate(rate int) Option {
	return func(o *options) { o.sampleRate = rate }
}

// WithInboxSize sets the capacity of the message queue, a power of 2.
func WithInboxSize(n int) Option {
	return func(o *options) { o.inboxSize = n }
}

const (
	numChannels = 2
	viewRate    = 30 // grain snapshots per second of audio
	maxGrains   = 256
)

// GrainView is the display state of a live grain.
type GrainView struct {
	Position float64 // normalized clip position of the read cursor
	Progress float64
	Key      uint8
}

// Snapshot is the display state of an emitter.
type Snapshot struct {
	Notes  int
	Grains []GrainView
}

// Emitter turns a clip into a stream of grains played by MIDI notes. The
// control plane calls NoteOn, NoteOff, ControlChange, SetParams, SetClip and
// Terminate from any goroutine; a single audio goroutine pulls samples with
// Next, Stream or Process.
type Emitter[S Sample] struct {
	sampleRate int
	frameDur   time.Duration

	sendMu sync.Mutex
	inbox  *eventBuffer[message[S]]
	ended  atomic.Bool
	view   atomic.Pointer[Snapshot]

	// owned by the audio goroutine
	clip       *Clip[S]
	params     EmitterParams
	rand       Rand
	pool       []Note
	free       []*Note
	notes      []*Note
	grains     []Grain[S]
	terminated bool
	frame      [numChannels]float64
	channel    int
	sinceView  int
	snaps      [2]Snapshot
	snap       int
}

func NewEmitter[S Sample](clip *Clip[S], opts ...Option) *Emitter[S] {
	o := options{
		params:    DefaultEmitterParams(),
		inboxSize: 1024,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampleRate <= 0 {
		o.sampleRate = clip.SampleRate()
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Emitter[S]{
		sampleRate: o.sampleRate,
		frameDur:   time.Second / time.Duration(o.sampleRate),
		inbox:      newEventBuffer[message[S]](o.inboxSize),
		clip:       clip,
		params:     o.params,
		rand:       o.rand,
		pool:       make([]Note, maxPolyphony),
		free:       make([]*Note, 0, maxPolyphony),
		notes:      make([]*Note, 0, maxPolyphony),
		grains:     make([]Grain[S], 0, maxGrains),
	}
	for i := range e.pool {
		e.free = append(e.free, &e.pool[i])
	}
	for i := range e.snaps {
		e.snaps[i].Grains = make([]GrainView, 0, maxGrains)
	}
	e.view.Store(&e.snaps[0])
	return e
}

func (e *Emitter[S]) SampleRate() int { return e.sampleRate }
func (e *Emitter[S]) Channels() int   { return numChannels }

func (e *Emitter[S]) send(m message[S]) {
	e.sendMu.Lock()
	e.inbox.push(m)
	e.sendMu.Unlock()
}

func (e *Emitter[S]) NoteOn(key, velocity uint8) {
	e.send(message[S]{kind: msgNoteOn, key: key, velocity: velocity})
}

func (e *Emitter[S]) NoteOff(key, velocity uint8) {
	e.send(message[S]{kind: msgNoteOff, key: key, velocity: velocity})
}

// ControlChange applies a MIDI CC value through the parameter CC map.
func (e *Emitter[S]) ControlChange(controller, value uint8) {
	e.send(message[S]{kind: msgControlChange, key: controller, velocity: value})
}

// SetParams replaces all parameters.
func (e *Emitter[S]) SetParams(p EmitterParams) {
	e.send(message[S]{kind: msgParams, params: &p})
}

// SetClip replaces the clip used by new grains.
func (e *Emitter[S]) SetClip(c *Clip[S]) {
	if c != nil {
		e.send(message[S]{kind: msgClip, clip: c})
	}
}

// Terminate ends the stream at the next poll.
func (e *Emitter[S]) Terminate() {
	e.send(message[S]{kind: msgTerminate})
}

// Terminated reports whether the audio goroutine has seen Terminate.
func (e *Emitter[S]) Terminated() bool {
	return e.ended.Load()
}

// Snapshot returns a copy of the most recently published display state.
func (e *Emitter[S]) Snapshot() Snapshot {
	s := *e.view.Load()
	s.Grains = slices.Clone(s.Grains)
	return s
}

func (e *Emitter[S]) handle(m message[S]) {
	if e.terminated {
		return
	}
	switch m.kind {
	case msgNoteOn:
		poly := min(max(e.params.Polyphony.Get(), 1), len(e.pool))
		for len(e.notes) >= poly {
			stolen := e.notes[0]
			stolen.finish()
			copy(e.notes, e.notes[1:])
			e.notes[len(e.notes)-1] = nil
			e.notes = e.notes[:len(e.notes)-1]
			e.free = append(e.free, stolen)
		}
		n := e.free[len(e.free)-1]
		e.free = e.free[:len(e.free)-1]
		n.reset(m.key, m.velocity, e.params.NoteEnvelope())
		e.notes = append(e.notes, n)
	case msgNoteOff:
		for _, n := range e.notes {
			if n.Key == m.key {
				n.release()
			}
		}
	case msgControlChange:
		e.params.ApplyCC(m.key, m.velocity)
	case msgParams:
		e.params = *m.params
	case msgClip:
		e.clip = m.clip
	case msgTerminate:
		e.terminated = true
		e.ended.Store(true)
	}
}

// step computes the next output frame. It returns false once terminated.
func (e *Emitter[S]) step() bool {
	e.inbox.drain(e.handle)
	if e.terminated {
		return false
	}

	interval := spawnNow
	if density := e.params.Density.Get(); density > 0 {
		interval = time.Duration(float64(time.Second) / density)
	}
	live := e.notes[:0]
	for _, n := range e.notes {
		n.update(e.frameDur)
		if n.Finished() {
			e.free = append(e.free, n)
			continue
		}
		if n.sinceLastGrain >= interval {
			e.spawn(n)
			n.sinceLastGrain = 0
		}
		live = append(live, n)
	}
	clear(e.notes[len(live):])
	e.notes = live

	var sum, out [numChannels]float64
	grains := e.grains[:0]
	for i := range e.grains {
		g := &e.grains[i]
		if g.orphaned() {
			continue
		}
		g.next(&out)
		amp := g.note.Amplitude()
		for ch := range sum {
			sum[ch] += out[ch] * amp
		}
		if !g.Done() {
			grains = append(grains, *g)
		}
	}
	clear(e.grains[len(grains):])
	e.grains = grains

	level := e.params.Amplitude.Get()
	for ch := range e.frame {
		e.frame[ch] = math.Tanh(sum[ch]) * level
	}

	if e.sinceView++; e.sinceView >= e.sampleRate/viewRate {
		e.publish()
	}
	return true
}

func (e *Emitter[S]) spawn(n *Note) {
	length := int(e.params.Length.Get().Seconds() * float64(e.sampleRate))
	if length <= 0 || e.clip.Frames() == 0 {
		return
	}
	speed := Speed(n.Key, e.params.Transpose.Get(), e.params.KeyMode)
	speed *= float64(e.clip.SampleRate()) / float64(e.sampleRate)
	e.grains = append(e.grains, newGrain(e.clip, n, e.startPosition(n.Key), length, speed, e.params.GrainEnvelope()))
}

// startPosition picks the normalized clip position of a new grain.
func (e *Emitter[S]) startPosition(key uint8) float64 {
	pos := e.params.Position.Get()
	if e.params.KeyMode == KeySlice {
		pos = SlicePosition(key, e.params.NumSlices.Get())
	}
	if spray := e.params.Spray.Get(); spray > 0 {
		offset := (e.rand.Float64() - 0.5) * spray.Seconds()
		pos += offset / e.clip.Duration().Seconds()
	}
	return clamp01(pos)
}

func (e *Emitter[S]) publish() {
	e.sinceView = 0
	e.snap ^= 1
	s := &e.snaps[e.snap]
	s.Notes = len(e.notes)
	s.Grains = s.Grains[:0]
	for i := range e.grains {
		g := &e.grains[i]
		s.Grains = append(s.Grains, GrainView{Position: g.Position(), Progress: g.Progress(), Key: g.note.Key})
	}
	e.view.Store(s)
}

// Speed returns the playback ratio for key. Key 60 plays at the original
// pitch in pitch mode; in slice mode only transpose changes the pitch.
func Speed(key uint8, transpose int, mode KeyMode) float64 {
	semitones := transpose
	if mode == KeyPitch {
		semitones += int(key) - 60
	}
	return math.Pow(2, float64(semitones)/12)
}

// SlicePosition returns the start of the slice selected by key.
func SlicePosition(key uint8, slices int) float64 {
	if slices < 1 {
		slices = 1
	}
	return float64(int(key)%slices) / float64(slices)
}

// Next returns the next interleaved sample. It returns false once the emitter
// has been terminated.
func (e *Emitter[S]) Next() (S, bool) {
	if e.channel == 0 {
		if !e.step() {
			return 0, false
		}
	} else {
		e.inbox.drain(e.handle)
		if e.terminated {
			return 0, false
		}
	}
	s := e.frame[e.channel]
	e.channel = (e.channel + 1) % numChannels
	return S(s), true
}

// Stream fills dst with interleaved samples and returns how many were written.
func (e *Emitter[S]) Stream(dst []S) (int, bool) {
	for i := range dst {
		s, ok := e.Next()
		if !ok {
			return i, false
		}
		dst[i] = s
	}
	return len(dst), true
}

// Process adds one buffer of non-interleaved output to out. A terminated
// emitter adds nothing.
func (e *Emitter[S]) Process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	for i := range out[0] {
		if !e.step() {
			return
		}
		for ch := range out {
			out[ch][i] += float32(e.frame[min(ch, numChannels-1)])
		}
	}
}

// Len returns the number of live notes and grains. It must only be called
// from the goroutine that pulls samples.
func (e *Emitter[S]) Len() (notes, grains int) {
	return len(e.notes), len(e.grains)
}
