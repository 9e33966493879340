package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMidiToFreq(t *testing.T) {
	assert.InDelta(t, 440.0, midiToFreq(69), 1e-9)
	assert.InDelta(t, 880.0, midiToFreq(81), 1e-9)
	assert.InDelta(t, 261.6256, midiToFreq(60), 1e-4)
}

func TestToneClip(t *testing.T) {
	for _, wave := range Waveforms {
		c, err := ToneClip[float32](wave, 69, 0, 100*time.Millisecond, 8000)
		if err != nil {
			t.Fatal(err)
		}
		if want, got := 800, c.Frames(); want != got {
			t.Errorf("%s: want %v frames, got %v", wave, want, got)
		}
		var peak float64
		for i := 0; i < c.Frames(); i++ {
			v := float64(c.Sample(i, 0))
			if v > peak {
				peak = v
			}
			if v < -0.5-1e-6 || v > 0.5+1e-6 {
				t.Fatalf("%s: sample %d out of range: %v", wave, i, v)
			}
		}
		if peak < 0.4 {
			t.Errorf("%s: want a peak near 0.5, got %v", wave, peak)
		}
		if want, got := wave+"-69", c.Name(); want != got {
			t.Errorf("want name %v, got %v", want, got)
		}
	}

	if _, err := ToneClip[float32]("noise", 60, 0, time.Second, 8000); err == nil {
		t.Errorf("expected error for unknown waveform")
	}
	if _, err := ToneClip[float32]("sine", 60, 0, 0, 8000); err != ErrEmptyClip {
		t.Errorf("want %v, got %v", ErrEmptyClip, err)
	}
	if _, err := ToneClip[float32]("sine", 60, 5000, time.Second, 8000); err == nil {
		t.Errorf("expected error for cutoff above nyquist")
	}
}

func TestLowpass(t *testing.T) {
	// a tone far above the cutoff loses most of its level
	raw, _ := ToneClip[float64]("sine", 100, 0, time.Second, 8000)
	filtered, _ := ToneClip[float64]("sine", 100, 200, time.Second, 8000)

	meanSquare := func(c *Clip[float64]) float64 {
		var sum float64
		for i := c.Frames() / 2; i < c.Frames(); i++ {
			v := c.Sample(i, 0)
			sum += v * v
		}
		return sum / float64(c.Frames()/2)
	}
	if meanSquare(filtered) > meanSquare(raw)/4 {
		t.Errorf("lowpass should attenuate: raw %v, filtered %v", meanSquare(raw), meanSquare(filtered))
	}
}
