package audio

import (
	"fmt"
	"math"
	"time"
)

const twoPi = 2 * math.Pi

// Waveforms lists the oscillator shapes accepted by ToneClip.
var Waveforms = []string{"sine", "saw", "square"}

type osc struct {
	phase      float64
	phaseDelta float64
	fn         func(float64) float64
}

func newOsc(wave string, freq float64, sampleRate int) (*osc, error) {
	o := &osc{phaseDelta: twoPi * freq / float64(sampleRate)}
	switch wave {
	case "sine":
		o.fn = math.Sin
	case "saw":
		o.fn = func(phase float64) float64 {
			return (2.0 * phase / twoPi) - 1.
		}
	case "square":
		o.fn = func(phase float64) float64 {
			if phase <= math.Pi {
				return 1.0
			}
			return -1.0
		}
	default:
		return nil, fmt.Errorf("not a valid waveform type: %v", wave)
	}
	return o, nil
}

func (o *osc) process(buf []float64) {
	for n := range buf {
		buf[n] += o.fn(o.phase)
		o.phase += o.phaseDelta
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
}

type filter struct {
	coefficients [5]float64

	// state
	y1, y2 float64 // y[n-1] y[n-2]
}

// Lowpass filter based on https://www.w3.org/2011/audio/audio-eq-cookbook.html
func newLowpass(freq float64, sampleRate int) *filter {
	omega := twoPi * freq / float64(sampleRate)
	cos := math.Cos(omega)
	sin := math.Sin(omega)

	const q = 1
	alpha := sin / (2. * q)

	b0 := (1 - cos) / 2
	b1 := 1 - cos
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cos
	a2 := 1 - alpha

	return &filter{coefficients: [5]float64{b0 / a0, b1 / a0, b2 / a0, a1 / a0, a2 / a0}}
}

func (f *filter) process(buf []float64) {
	c := f.coefficients
	for n := range buf {
		in := buf[n]
		out := c[0]*in + f.y1
		buf[n] = out
		f.y1 = c[1]*in - c[3]*out + f.y2
		f.y2 = c[2]*in - c[4]*out
	}
}

// ToneClip synthesizes a mono clip of an oscillator playing key, optionally
// through a lowpass filter. A cutoff of zero disables the filter.
func ToneClip[S Sample](wave string, key uint8, cutoff float64, d time.Duration, sampleRate int) (*Clip[S], error) {
	frames := int(d.Seconds() * float64(sampleRate))
	if frames <= 0 {
		return nil, ErrEmptyClip
	}
	if cutoff < 0 || cutoff >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff out of range 0-%d: %v", sampleRate/2, cutoff)
	}
	o, err := newOsc(wave, midiToFreq(key), sampleRate)
	if err != nil {
		return nil, err
	}
	buf := make([]float64, frames)
	o.process(buf)
	if cutoff > 0 {
		newLowpass(cutoff, sampleRate).process(buf)
	}
	data := make([]S, frames)
	for i, v := range buf {
		data[i] = S(0.5 * v)
	}
	clip := NewClip(data, 1, sampleRate)
	clip.name = fmt.Sprintf("%s-%d", wave, key)
	return clip, nil
}

func midiToFreq(note uint8) float64 {
	return math.Pow(2, float64(int(note)-69)/12.0) * 440
}
