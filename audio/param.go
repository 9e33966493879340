package audio

import (
	"math"
	"time"
)

// Numeric is the set of value types a Parameter can hold. time.Duration values
// are mapped through seconds, everything else through its plain numeric value.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

const defaultSmallestPositive = 1e-6

// Parameter is a bounded value that can be read and written as a normalized
// position in [0,1]. Knobs and MIDI controllers both go through
// Normalized/SetNormalized.
type Parameter[T Numeric] struct {
	value            T
	min, max         T
	logarithmic      bool
	smallestPositive float64
}

func NewParameter[T Numeric](value, min, max T) Parameter[T] {
	return Parameter[T]{
		value:            value,
		min:              min,
		max:              max,
		smallestPositive: defaultSmallestPositive,
	}
}

// Logarithmic returns a copy of p that maps values on a log10 scale. The range
// must satisfy 0 <= min < max.
func (p Parameter[T]) Logarithmic() Parameter[T] {
	lo, hi := toFloat(p.min), toFloat(p.max)
	if lo < 0 || hi <= lo {
		panic("logarithmic parameter needs a positive, increasing range")
	}
	p.logarithmic = true
	return p
}

// SmallestPositive sets the floor used instead of log10(0).
func (p Parameter[T]) SmallestPositive(v float64) Parameter[T] {
	p.smallestPositive = v
	return p
}

func (p *Parameter[T]) Get() T        { return p.value }
func (p *Parameter[T]) Set(v T)       { p.value = v }
func (p *Parameter[T]) Range() (T, T) { return p.min, p.max }
func (p *Parameter[T]) IsLog() bool   { return p.logarithmic }

// Contains reports whether v lies inside the parameter range.
func (p *Parameter[T]) Contains(v T) bool {
	lo, hi := p.min, p.max
	if lo > hi {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Normalized returns the current value as a position in [0,1].
func (p *Parameter[T]) Normalized() float64 {
	return p.toNormalized(toFloat(p.value), toFloat(p.min), toFloat(p.max))
}

// SetNormalized sets the value from a position in [0,1].
func (p *Parameter[T]) SetNormalized(n float64) {
	p.value = fromFloat[T](p.fromNormalized(n, toFloat(p.min), toFloat(p.max)))
}

func (p *Parameter[T]) toNormalized(v, min, max float64) float64 {
	switch {
	case min == max:
		return 0.5
	case min > max:
		return 1 - p.toNormalized(v, max, min)
	case v <= min:
		return 0
	case v >= max:
		return 1
	case p.logarithmic:
		lo, hi := p.logBounds(min, max)
		return clamp01((math.Log10(v) - lo) / (hi - lo))
	default:
		return clamp01((v - min) / (max - min))
	}
}

func (p *Parameter[T]) fromNormalized(n, min, max float64) float64 {
	switch {
	case min == max:
		return min
	case min > max:
		return p.fromNormalized(1-n, max, min)
	case n <= 0:
		return min
	case n >= 1:
		return max
	case p.logarithmic:
		lo, hi := p.logBounds(min, max)
		return math.Pow(10, lo+n*(hi-lo))
	default:
		return min + n*(max-min)
	}
}

func (p *Parameter[T]) logBounds(min, max float64) (float64, float64) {
	if min < 0 || max <= min {
		panic("logarithmic parameter needs a positive, non-empty range")
	}
	return math.Log10(math.Max(min, p.smallestPositive)), math.Log10(max)
}

func toFloat[T Numeric](v T) float64 {
	if d, ok := any(v).(time.Duration); ok {
		return d.Seconds()
	}
	return float64(v)
}

func fromFloat[T Numeric](f float64) T {
	var zero T
	if _, ok := any(zero).(time.Duration); ok {
		return T(math.Round(f * float64(time.Second)))
	}
	if isIntegral[T]() {
		return T(math.Round(f))
	}
	return T(f)
}

// isIntegral reports whether T truncates fractions.
func isIntegral[T Numeric]() bool {
	half := 0.5
	return T(half) == 0
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
