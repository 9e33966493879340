package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

func sineClip(seconds float64, sampleRate int) *Clip[float32] {
	data := make([]float32, int(seconds*float64(sampleRate)))
	for i := range data {
		data[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return NewClip(data, 1, sampleRate)
}

func constClip(v float32, frames, sampleRate int) *Clip[float32] {
	data := make([]float32, frames)
	for i := range data {
		data[i] = v
	}
	return NewClip(data, 1, sampleRate)
}

// pull steps the emitter for n frames and returns the left channel.
func pull(t *testing.T, e *Emitter[float32], n int) []float32 {
	t.Helper()
	out := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		l, ok := e.Next()
		if !ok {
			t.Fatalf("unexpected end of stream at frame %d", i)
		}
		if _, ok := e.Next(); !ok {
			t.Fatalf("unexpected end of stream at frame %d", i)
		}
		out = append(out, l)
	}
	return out
}

func silent(samples []float32) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}

func TestEmitterNoteLifecycle(t *testing.T) {
	const sampleRate = 44100
	e := NewEmitter(sineClip(1, sampleRate), WithRand(constRand(0.5)))

	if !silent(pull(t, e, 100)) {
		t.Errorf("emitter without notes should be silent")
	}

	e.NoteOn(60, 127)
	out := pull(t, e, sampleRate)
	if silent(out) {
		t.Fatalf("expected sound while a note is held")
	}
	if notes, _ := e.Len(); notes != 1 {
		t.Errorf("want 1 held note, got %v", notes)
	}

	e.NoteOff(60, 0)
	release := DefaultAdsrEnvelope().Release
	frames := int(math.Ceil(release.Seconds()*sampleRate)) + 1
	pull(t, e, frames)

	if notes, grains := e.Len(); notes != 0 || grains != 0 {
		t.Errorf("want no notes or grains after release, got %v notes and %v grains", notes, grains)
	}
	if !silent(pull(t, e, 1000)) {
		t.Errorf("expected silence after the note was released")
	}
}

func TestEmitterVoiceStealing(t *testing.T) {
	params := DefaultEmitterParams()
	params.Polyphony.Set(3)
	e := NewEmitter(sineClip(1, 44100), WithParams(params))

	keys := []uint8{60, 61, 62, 63, 64}
	for _, key := range keys {
		e.NoteOn(key, 100)
		pull(t, e, 1)
		if n, _ := e.Len(); n > 3 {
			t.Fatalf("note pool exceeds polyphony: %v", n)
		}
	}
	var got []uint8
	for _, n := range e.notes {
		got = append(got, n.Key)
	}
	if want := []uint8{62, 63, 64}; !assert.Equal(t, want, got) {
		t.Errorf("oldest voices should have been stolen")
	}
	for _, g := range e.grains {
		if g.note.Key < 62 {
			t.Errorf("grain of stolen note %v still playing", g.note.Key)
		}
	}
}

func TestEmitterVoiceStealingSameFrame(t *testing.T) {
	params := DefaultEmitterParams()
	params.Polyphony.Set(2)
	e := NewEmitter(sineClip(1, 44100), WithParams(params))

	e.NoteOn(60, 100)
	e.NoteOn(61, 100)
	e.NoteOn(62, 100)
	pull(t, e, 1)

	if want, got := 2, len(e.notes); want != got {
		t.Fatalf("want %v notes, got %v", want, got)
	}
	if want, got := uint8(61), e.notes[0].Key; want != got {
		t.Errorf("want oldest surviving key %v, got %v", want, got)
	}
}

func TestEmitterStolenSlotReuse(t *testing.T) {
	params := DefaultEmitterParams()
	params.Polyphony.Set(1)
	params.Density.Set(1)
	e := NewEmitter(sineClip(1, 44100), WithParams(params))

	e.NoteOn(60, 100)
	pull(t, e, 1)
	e.NoteOn(72, 100)
	pull(t, e, 1)

	if want, got := 1, len(e.grains); want != got {
		t.Fatalf("want %v grain, got %v", want, got)
	}
	if want, got := uint8(72), e.grains[0].note.Key; want != got {
		t.Errorf("want grain of key %v, got %v", want, got)
	}
}

func TestEmitterNoAllocs(t *testing.T) {
	const sampleRate = 3000
	params := DefaultEmitterParams()
	params.Polyphony.Set(4)
	e := NewEmitter(sineClip(1, sampleRate), WithParams(params), WithRand(constRand(0.5)))

	var key uint8
	allocs := testing.AllocsPerRun(200, func() {
		key = 48 + (key+1)%24
		e.NoteOn(key, 100)
		for i := 0; i < sampleRate/viewRate; i++ {
			e.step()
		}
		e.NoteOff(key, 0)
		e.step()
	})
	if allocs != 0 {
		t.Errorf("want no allocations on the audio path, got %v per run", allocs)
	}
}

func TestEmitterNoteOffMatchesKey(t *testing.T) {
	e := NewEmitter(sineClip(1, 44100))
	e.NoteOn(60, 100)
	e.NoteOn(64, 100)
	e.NoteOn(60, 100)
	e.NoteOff(60, 0)
	pull(t, e, 1)

	var held []uint8
	for _, n := range e.notes {
		if n.Held() {
			held = append(held, n.Key)
		}
	}
	if want := []uint8{64}; !assert.Equal(t, want, held) {
		t.Errorf("note off should release every note with the key")
	}
}

func TestSpeed(t *testing.T) {
	type test struct {
		key       uint8
		transpose int
		mode      KeyMode
		want      float64
	}
	tests := []test{
		{60, 0, KeyPitch, 1},
		{72, 0, KeyPitch, 2},
		{48, 0, KeyPitch, 0.5},
		{60, 12, KeyPitch, 2},
		{48, 12, KeyPitch, 1},
		{48, 0, KeySlice, 1},
		{90, -12, KeySlice, 0.5},
	}
	for _, test := range tests {
		if got := Speed(test.key, test.transpose, test.mode); got != test.want {
			t.Errorf("Speed(%v, %v, %v): want %v, got %v", test.key, test.transpose, test.mode, test.want, got)
		}
	}
}

func TestStartPosition(t *testing.T) {
	params := DefaultEmitterParams()
	params.Position.Set(0.5)
	e := NewEmitter(sineClip(1, 1000), WithParams(params), WithRand(constRand(1)))

	assert.Equal(t, 0.5, e.startPosition(60))

	e.params.Spray.Set(500 * time.Millisecond)
	assert.InDelta(t, 0.75, e.startPosition(60), 1e-9)

	e.rand = constRand(0)
	assert.InDelta(t, 0.25, e.startPosition(60), 1e-9)

	e.params.Position.Set(0)
	assert.Equal(t, 0.0, e.startPosition(60), "spray must not move the start before the clip")

	e.params.Spray.Set(0)
	e.params.KeyMode = KeySlice
	e.params.NumSlices.Set(4)
	for key, want := range map[uint8]float64{60: 0, 61: 0.25, 62: 0.5, 63: 0.75, 64: 0} {
		assert.Equal(t, want, e.startPosition(key), "key %v", key)
	}
}

func TestEmitterTerminate(t *testing.T) {
	e := NewEmitter(sineClip(1, 44100))
	e.NoteOn(60, 100)
	pull(t, e, 10)

	e.Terminate()
	e.NoteOn(62, 100)

	if _, ok := e.Next(); ok {
		t.Errorf("expected end of stream after terminate")
	}
	if n, ok := e.Stream(make([]float32, 16)); ok || n != 0 {
		t.Errorf("want (0, false) from Stream, got (%v, %v)", n, ok)
	}
	if !e.Terminated() {
		t.Errorf("Terminated should report true")
	}

	out := [][]float32{make([]float32, 8), make([]float32, 8)}
	e.Process(out)
	if !silent(out[0]) || !silent(out[1]) {
		t.Errorf("terminated emitter should add nothing")
	}
}

func TestEmitterIgnoresMessagesAfterTerminate(t *testing.T) {
	e := NewEmitter(sineClip(1, 44100))
	e.NoteOn(60, 100)
	pull(t, e, 1)

	first := e.clip
	e.Terminate()
	e.NoteOn(62, 100)
	e.SetClip(sineClip(0.5, 44100))
	params := DefaultEmitterParams()
	params.Amplitude.Set(0.25)
	e.SetParams(params)
	e.Next()

	if notes, _ := e.Len(); notes != 1 {
		t.Errorf("want the note from before terminate only, got %v notes", notes)
	}
	if e.clip != first {
		t.Errorf("clip changed after terminate")
	}
	assert.Equal(t, 1.0, e.params.Amplitude.Get())
}

func TestEmitterTerminateMidFrame(t *testing.T) {
	e := NewEmitter(sineClip(1, 44100))
	if _, ok := e.Next(); !ok {
		t.Fatal("unexpected end of stream")
	}
	e.Terminate()
	if _, ok := e.Next(); ok {
		t.Errorf("expected end of stream on the next poll")
	}
}

func TestEmitterControlChange(t *testing.T) {
	params := DefaultEmitterParams()
	params.CCMap = params.Map(1, ParamPosition)
	params.CCMap = append(params.CCMap, CCMapping{Controller: 1, Param: ParamAmplitude})
	params.CCMap = append(params.CCMap, CCMapping{Controller: 7, Param: ParamTranspose})
	e := NewEmitter(sineClip(1, 44100), WithParams(params))

	e.ControlChange(1, 127)
	e.ControlChange(7, 0)
	e.ControlChange(9, 64)
	pull(t, e, 1)

	assert.Equal(t, 1.0, e.params.Position.Get())
	assert.Equal(t, 1.0, e.params.Amplitude.Get())
	assert.Equal(t, -12, e.params.Transpose.Get())

	e.ControlChange(1, 0)
	pull(t, e, 1)
	assert.Equal(t, 0.0, e.params.Position.Get())
	assert.Equal(t, 0.0, e.params.Amplitude.Get())
}

func TestEmitterSetParams(t *testing.T) {
	e := NewEmitter(sineClip(1, 44100))
	params := DefaultEmitterParams()
	params.Density.Set(50)
	params.KeyMode = KeySlice
	e.SetParams(params)

	params.Density.Set(2)
	pull(t, e, 1)

	assert.Equal(t, 50.0, e.params.Density.Get())
	assert.Equal(t, KeySlice, e.params.KeyMode)
}

func TestEmitterDensity(t *testing.T) {
	const sampleRate = 1000
	params := DefaultEmitterParams()
	params.Density.Set(10)
	params.Length.Set(time.Second)
	e := NewEmitter(sineClip(2, sampleRate), WithParams(params))

	e.NoteOn(60, 127)
	pull(t, e, 1)
	if _, grains := e.Len(); grains != 1 {
		t.Fatalf("a new note should spawn a grain immediately, got %v", grains)
	}
	pull(t, e, 499)
	if notes, _ := e.Len(); notes != 1 {
		t.Fatalf("want 1 note, got %v", notes)
	}
	if _, grains := e.Len(); grains < 5 || grains > 6 {
		t.Errorf("want about 5 grains after half a second at 10 grains/s, got %v", grains)
	}
}

func TestEmitterSoftLimit(t *testing.T) {
	const sampleRate = 1000
	params := DefaultEmitterParams()
	params.Density.Set(100)
	params.Length.Set(time.Second)
	params.GrainAmount.Set(0)
	params.Amplitude.Set(0.5)
	e := NewEmitter(constClip(1, 2*sampleRate, sampleRate), WithParams(params))

	e.NoteOn(60, 127)
	out := pull(t, e, 200)
	for i, s := range out {
		if s > 0.5 {
			t.Fatalf("frame %d exceeds the amplitude: %v", i, s)
		}
	}
	assert.InDelta(t, 0.5, float64(out[len(out)-1]), 1e-3)
}

func TestEmitterStereo(t *testing.T) {
	data := []float32{}
	for i := 0; i < 1000; i++ {
		data = append(data, 0.5, -0.5)
	}
	params := DefaultEmitterParams()
	params.GrainAmount.Set(0)
	e := NewEmitter(NewClip(data, 2, 1000), WithParams(params))
	e.NoteOn(60, 127)

	buf := make([]float32, 20)
	if n, ok := e.Stream(buf); !ok || n != len(buf) {
		t.Fatalf("want full buffer, got (%v, %v)", n, ok)
	}
	for i := 2; i < len(buf); i += 2 {
		if buf[i] <= 0 || buf[i+1] >= 0 || buf[i] != -buf[i+1] {
			t.Errorf("channels out of phase at frame %d: %v %v", i/2, buf[i], buf[i+1])
		}
	}
}

func TestEmitterProcess(t *testing.T) {
	e := NewEmitter(sineClip(1, 44100))
	e.NoteOn(60, 127)

	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	e.Process(out)
	if silent(out[0]) {
		t.Errorf("expected sound in the left channel")
	}
	if !assert.Equal(t, out[0], out[1]) {
		t.Errorf("mono clip should produce identical channels")
	}
}

func TestEmitterSetClip(t *testing.T) {
	const sampleRate = 1000
	params := DefaultEmitterParams()
	params.GrainAmount.Set(0)
	params.Length.Set(time.Second)
	params.Density.Set(1)
	first := constClip(0.5, sampleRate, sampleRate)
	second := constClip(-0.5, sampleRate, sampleRate)
	e := NewEmitter(first, WithParams(params))

	e.NoteOn(60, 127)
	pull(t, e, 10)
	e.SetClip(second)
	pull(t, e, 1)

	if want, got := first, e.grains[0].clip; want != got {
		t.Errorf("live grain should keep its clip")
	}
	if want, got := second, e.clip; want != got {
		t.Errorf("emitter should use the new clip")
	}
}

func TestEmitterSnapshot(t *testing.T) {
	const sampleRate = 3000
	e := NewEmitter(sineClip(1, sampleRate))
	if got := e.Snapshot(); got.Notes != 0 || len(got.Grains) != 0 {
		t.Errorf("want empty snapshot, got %+v", got)
	}

	e.NoteOn(60, 127)
	pull(t, e, sampleRate/viewRate)

	snap := e.Snapshot()
	if want, got := 1, snap.Notes; want != got {
		t.Errorf("want %v notes, got %v", want, got)
	}
	if len(snap.Grains) == 0 {
		t.Fatalf("want grain views")
	}
	g := snap.Grains[0]
	if g.Key != 60 || g.Progress <= 0 || g.Position <= 0 {
		t.Errorf("unexpected grain view: %+v", g)
	}
}

func TestEmitterSampleRate(t *testing.T) {
	e := NewEmitter(sineClip(1, 22050), WithSampleRate(44100))
	if want, got := 44100, e.SampleRate(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	e.NoteOn(60, 127)
	pull(t, e, 1)
	assert.Equal(t, 0.5, e.grains[0].speed)
}
