package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	e := NewEmitter(sineClip(1, 8000))
	e.NoteOn(60, 127)

	out := Render(e, 800, nil)
	if want, got := 1600, len(out); want != got {
		t.Fatalf("want %v samples, got %v", want, got)
	}
	if silent(out) {
		t.Errorf("expected rendered audio")
	}

	e.Terminate()
	out = Render(e, 100, out)
	if want, got := 1600, len(out); want != got {
		t.Errorf("terminated emitter should render nothing, got %v samples", got)
	}
}

func TestWriteWAVClipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteWAV(f, []float32{2, -2, 0.5}, 8000, 1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c, err := LoadClip[float32](path)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 3, c.Frames(); want != got {
		t.Fatalf("want %v frames, got %v", want, got)
	}
	assert.InDelta(t, 1.0, float64(c.Sample(0, 0)), 1e-3)
	assert.InDelta(t, -1.0, float64(c.Sample(1, 0)), 1e-3)
	assert.InDelta(t, 0.5, float64(c.Sample(2, 0)), 1e-3)
}
