package audio

import (
	"math"
	"time"
)

// AdsrEnvelope is the amplitude curve of a note. All segments are linear.
type AdsrEnvelope struct {
	Attack       time.Duration
	Decay        time.Duration
	SustainLevel float64
	Release      time.Duration
}

func DefaultAdsrEnvelope() AdsrEnvelope {
	return AdsrEnvelope{
		Attack:       time.Millisecond,
		Decay:        1000 * time.Millisecond,
		SustainLevel: 1.0,
		Release:      15 * time.Millisecond,
	}
}

// HeldAmplitude returns the amplitude of a note that has been held for t.
func (e AdsrEnvelope) HeldAmplitude(t time.Duration) float64 {
	switch {
	case t < 0:
		return 0
	case t < e.Attack:
		return lerp(0, 1, ratio(t, e.Attack))
	case t < e.Attack+e.Decay:
		return lerp(1, e.SustainLevel, ratio(t-e.Attack, e.Decay))
	default:
		return e.SustainLevel
	}
}

// ReleasedAmplitude returns the amplitude of a note released t ago.
func (e AdsrEnvelope) ReleasedAmplitude(t time.Duration) float64 {
	if t < 0 || t > e.Release || e.Release == 0 {
		return 0
	}
	return lerp(e.SustainLevel, 0, ratio(t, e.Release))
}

// OneshotAmplitude plays attack and decay and then releases immediately.
func (e AdsrEnvelope) OneshotAmplitude(t time.Duration) float64 {
	if held := e.Attack + e.Decay; t > held {
		return e.ReleasedAmplitude(t - held)
	}
	return e.HeldAmplitude(t)
}

// Length is the duration of the one-shot curve.
func (e AdsrEnvelope) Length() time.Duration {
	return e.Attack + e.Decay + e.Release
}

// Curve samples the one-shot amplitude at n+1 evenly spaced points.
func (e AdsrEnvelope) Curve(n int) []float64 {
	points := make([]float64, n+1)
	length := e.Length()
	for i := range points {
		t := time.Duration(float64(length) * float64(i) / float64(n))
		points[i] = e.OneshotAmplitude(t)
	}
	return points
}

// GrainEnvelope is a tapered cosine (Tukey) window. Amount is the fraction of
// the grain spent fading in and out, skew in [-1,1] moves taper time from the
// fade in (-1: instant attack) to the fade out (+1: instant decay).
type GrainEnvelope struct {
	Amount float64
	Skew   float64
}

// AmplitudeAt returns the window value at progress x in [0,1].
func (e GrainEnvelope) AmplitudeAt(x float64) float64 {
	if x < 0 || x > 1 {
		return 0
	}
	radius := math.Max(0, math.Min(1, e.Amount))
	skew := math.Max(-1, math.Min(1, e.Skew)) * radius
	in := 0.5 * (radius + skew)
	out := 0.5 * (radius - skew)
	switch {
	case x < in:
		return 0.5 * (1 - math.Cos(math.Pi*x/in))
	case x <= 1-out:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(x-1+out)/out))
	}
}

// Curve samples the window at n+1 evenly spaced points.
func (e GrainEnvelope) Curve(n int) []float64 {
	points := make([]float64, n+1)
	for i := range points {
		points[i] = e.AmplitudeAt(float64(i) / float64(n))
	}
	return points
}

func lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}

// ratio returns t/d, treating a zero length segment as already complete.
func ratio(t, d time.Duration) float64 {
	if d <= 0 {
		return 1
	}
	return float64(t) / float64(d)
}
