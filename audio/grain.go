package audio

// Grain is a short windowed read of a clip. It starts at a normalized clip
// position, reads forward at speed source frames per output frame with linear
// interpolation and lasts a fixed number of output frames.
type Grain[S Sample] struct {
	clip     *Clip[S]
	note     *Note
	gen      uint32 // generation of note when the grain started
	envelope GrainEnvelope
	start    float64 // normalized start position
	speed    float64
	pos      float64 // read cursor in source frames
	elapsed  int     // output frames played
	length   int     // total output frames
}

func newGrain[S Sample](clip *Clip[S], note *Note, start float64, length int, speed float64, env GrainEnvelope) Grain[S] {
	return Grain[S]{
		clip:     clip,
		note:     note,
		gen:      note.gen,
		envelope: env,
		start:    start,
		speed:    speed,
		pos:      start * float64(clip.Frames()),
		length:   length,
	}
}

// Done reports whether the grain has played all of its frames.
func (g *Grain[S]) Done() bool {
	return g.elapsed >= g.length
}

// orphaned reports whether the grain's note has finished or its pool slot
// was reused by another note.
func (g *Grain[S]) orphaned() bool {
	return g.note.gen != g.gen || g.note.Finished()
}

// Progress is the fraction of the grain that has been played.
func (g *Grain[S]) Progress() float64 {
	if g.length == 0 {
		return 1
	}
	return float64(g.elapsed) / float64(g.length)
}

// Position is the normalized clip position of the read cursor.
func (g *Grain[S]) Position() float64 {
	return g.pos / float64(g.clip.Frames())
}

// next writes one enveloped output frame into out and advances the grain.
// Reads past the end of the clip are silent.
func (g *Grain[S]) next(out *[2]float64) {
	if g.Done() {
		out[0], out[1] = 0, 0
		return
	}
	amp := g.envelope.AmplitudeAt(g.Progress())
	i := int(g.pos)
	frac := g.pos - float64(i)
	for ch := range out {
		a := float64(g.clip.Sample(i, ch))
		b := float64(g.clip.Sample(i+1, ch))
		out[ch] = amp * (a + (b-a)*frac)
	}
	g.pos += g.speed
	g.elapsed++
}
