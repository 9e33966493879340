package audio

import (
	"testing"
)

type constSource float32

func (c constSource) Process(out [][]float32) {
	for ch := range out {
		for i := range out[ch] {
			out[ch][i] += float32(c)
		}
	}
}

func TestSources(t *testing.T) {
	var s sources
	buf := [][]float32{{9, 9}, {9, 9}}
	s.process(buf)
	for _, ch := range buf {
		for _, v := range ch {
			if v != 0 {
				t.Fatalf("want silence without sources, got %v", buf)
			}
		}
	}

	a, b := constSource(0.25), constSource(0.5)
	s.add(a, b)
	s.process(buf)
	if want, got := float32(0.75), buf[1][1]; want != got {
		t.Errorf("want %v, got %v", want, got)
	}

	s.remove(a)
	s.process(buf)
	if want, got := float32(0.5), buf[0][0]; want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestSourcesEmitter(t *testing.T) {
	var s sources
	e := NewEmitter(sineClip(1, 44100))
	s.add(e)
	e.NoteOn(60, 127)

	buf := [][]float32{make([]float32, 128), make([]float32, 128)}
	s.process(buf)
	if silent(buf[0]) {
		t.Errorf("expected emitter output")
	}

	s.remove(e)
	s.process(buf)
	if !silent(buf[0]) {
		t.Errorf("removed emitter should not be pulled")
	}
}
