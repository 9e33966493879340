package audio

import (
	"fmt"
	"math"
	"time"
)

// KeyMode selects what a MIDI key controls.
type KeyMode int

const (
	KeyPitch KeyMode = iota // key sets playback pitch
	KeySlice                // key selects a slice of the clip
)

func (m KeyMode) String() string {
	if m == KeySlice {
		return "slice"
	}
	return "pitch"
}

func ParseKeyMode(s string) (KeyMode, error) {
	switch s {
	case "pitch":
		return KeyPitch, nil
	case "slice":
		return KeySlice, nil
	}
	return KeyPitch, fmt.Errorf("unknown key mode %q", s)
}

// maxPolyphony bounds the note pool of an emitter.
const maxPolyphony = 32

// ControlParam identifies a parameter that can be set by name or MIDI CC.
type ControlParam int

const (
	ParamPosition ControlParam = iota
	ParamNumSlices
	ParamSpray
	ParamLength
	ParamDensity
	ParamGrainEnvelopeAmount
	ParamGrainEnvelopeSkew
	ParamNoteEnvelopeAttack
	ParamNoteEnvelopeDecay
	ParamNoteEnvelopeSustain
	ParamNoteEnvelopeRelease
	ParamTranspose
	ParamAmplitude
	ParamPolyphony
	numControlParams
)

var controlParamNames = [numControlParams]string{
	ParamPosition:            "position",
	ParamNumSlices:           "slices",
	ParamSpray:               "spray",
	ParamLength:              "length",
	ParamDensity:             "density",
	ParamGrainEnvelopeAmount: "grain.amount",
	ParamGrainEnvelopeSkew:   "grain.skew",
	ParamNoteEnvelopeAttack:  "env.attack",
	ParamNoteEnvelopeDecay:   "env.decay",
	ParamNoteEnvelopeSustain: "env.sustain",
	ParamNoteEnvelopeRelease: "env.release",
	ParamTranspose:           "transpose",
	ParamAmplitude:           "level",
	ParamPolyphony:           "polyphony",
}

func (p ControlParam) String() string {
	if p < 0 || p >= numControlParams {
		return fmt.Sprintf("ControlParam(%d)", int(p))
	}
	return controlParamNames[p]
}

func ParseControlParam(name string) (ControlParam, error) {
	for p, n := range controlParamNames {
		if n == name {
			return ControlParam(p), nil
		}
	}
	return 0, fmt.Errorf("unknown property %s", name)
}

// ControlParams lists every parameter in display order.
func ControlParams() []ControlParam {
	params := make([]ControlParam, numControlParams)
	for i := range params {
		params[i] = ControlParam(i)
	}
	return params
}

// CCMapping routes a MIDI controller to a parameter.
type CCMapping struct {
	Controller uint8
	Param      ControlParam
}

// EmitterParams is the full settings snapshot of an emitter. Snapshots are
// passed by value; CCMap must be replaced, never modified in place, once a
// snapshot has been sent.
type EmitterParams struct {
	CCMap     []CCMapping
	KeyMode   KeyMode
	NumSlices Parameter[int]

	Position Parameter[float64]
	Spray    Parameter[time.Duration]
	Length   Parameter[time.Duration]
	Density  Parameter[float64] // grains per second per note

	GrainAmount Parameter[float64]
	GrainSkew   Parameter[float64]

	Attack  Parameter[time.Duration]
	Decay   Parameter[time.Duration]
	Sustain Parameter[float64]
	Release Parameter[time.Duration]

	Polyphony Parameter[int]
	Transpose Parameter[int] // semitones
	Amplitude Parameter[float64]
}

func DefaultEmitterParams() EmitterParams {
	env := DefaultAdsrEnvelope()
	envTime := func(d time.Duration) Parameter[time.Duration] {
		return NewParameter(d, 0, 10*time.Second).Logarithmic().SmallestPositive(0.001)
	}
	return EmitterParams{
		KeyMode:     KeyPitch,
		NumSlices:   NewParameter(12, 1, 127),
		Position:    NewParameter(0.0, 0, 1),
		Spray:       NewParameter(time.Duration(0), 0, time.Second).Logarithmic().SmallestPositive(0.001),
		Length:      NewParameter(100*time.Millisecond, 0, time.Second).Logarithmic().SmallestPositive(0.001),
		Density:     NewParameter(10.0, 1, 100).Logarithmic(),
		GrainAmount: NewParameter(0.5, 0, 1),
		GrainSkew:   NewParameter(0.0, -1, 1),
		Attack:      envTime(env.Attack),
		Decay:       envTime(env.Decay),
		Sustain:     NewParameter(env.SustainLevel, 0, 1),
		Release:     envTime(env.Release),
		Polyphony:   NewParameter(8, 1, maxPolyphony),
		Transpose:   NewParameter(0, -12, 12),
		Amplitude:   NewParameter(1.0, 0, 1),
	}
}

func (p *EmitterParams) GrainEnvelope() GrainEnvelope {
	return GrainEnvelope{Amount: p.GrainAmount.Get(), Skew: p.GrainSkew.Get()}
}

func (p *EmitterParams) NoteEnvelope() AdsrEnvelope {
	return AdsrEnvelope{
		Attack:       p.Attack.Get(),
		Decay:        p.Decay.Get(),
		SustainLevel: p.Sustain.Get(),
		Release:      p.Release.Get(),
	}
}

// property is the uniform view of one parameter used by Set, Normalized and
// SetNormalized.
type property interface {
	Normalized() float64
	SetNormalized(float64)
	set(float64) error
	String() string
}

func (p *EmitterParams) property(cp ControlParam) property {
	switch cp {
	case ParamPosition:
		return floatProp{&p.Position}
	case ParamNumSlices:
		return intProp{&p.NumSlices}
	case ParamSpray:
		return durationProp{&p.Spray}
	case ParamLength:
		return durationProp{&p.Length}
	case ParamDensity:
		return floatProp{&p.Density}
	case ParamGrainEnvelopeAmount:
		return floatProp{&p.GrainAmount}
	case ParamGrainEnvelopeSkew:
		return floatProp{&p.GrainSkew}
	case ParamNoteEnvelopeAttack:
		return durationProp{&p.Attack}
	case ParamNoteEnvelopeDecay:
		return durationProp{&p.Decay}
	case ParamNoteEnvelopeSustain:
		return floatProp{&p.Sustain}
	case ParamNoteEnvelopeRelease:
		return durationProp{&p.Release}
	case ParamTranspose:
		return intProp{&p.Transpose}
	case ParamAmplitude:
		return floatProp{&p.Amplitude}
	case ParamPolyphony:
		return intProp{&p.Polyphony}
	}
	panic(fmt.Sprintf("no property for %v", cp))
}

// Set updates the property with a raw value. Durations are given in seconds.
func (p *EmitterParams) Set(key string, v interface{}) error {
	cp, err := ParseControlParam(key)
	if err != nil {
		return err
	}
	f, err := toFloat64(v)
	if err != nil {
		return err
	}
	if err := p.property(cp).set(f); err != nil {
		return fmt.Errorf("set property %s: %w", key, err)
	}
	return nil
}

// Get returns a printable value of the property.
func (p *EmitterParams) Get(key string) (interface{}, error) {
	cp, err := ParseControlParam(key)
	if err != nil {
		return nil, err
	}
	return p.property(cp).String(), nil
}

func (p *EmitterParams) Normalized(cp ControlParam) float64 {
	return p.property(cp).Normalized()
}

func (p *EmitterParams) SetNormalized(cp ControlParam, n float64) {
	p.property(cp).SetNormalized(n)
}

// ApplyCC applies a controller value to every mapping of controller, in table
// order.
func (p *EmitterParams) ApplyCC(controller, value uint8) {
	for _, m := range p.CCMap {
		if m.Controller == controller {
			p.SetNormalized(m.Param, float64(value)/127)
		}
	}
}

// Map returns a copy of the CC table with controller mapped to cp.
func (p *EmitterParams) Map(controller uint8, cp ControlParam) []CCMapping {
	m := make([]CCMapping, 0, len(p.CCMap)+1)
	m = append(m, p.CCMap...)
	return append(m, CCMapping{Controller: controller, Param: cp})
}

// Unmap returns a copy of the CC table without mappings for controller.
func (p *EmitterParams) Unmap(controller uint8) []CCMapping {
	var m []CCMapping
	for _, mapping := range p.CCMap {
		if mapping.Controller != controller {
			m = append(m, mapping)
		}
	}
	return m
}

type floatProp struct{ *Parameter[float64] }

func (p floatProp) set(f float64) error {
	if !p.Contains(f) {
		return rangeError(p.min, p.max, f)
	}
	p.Set(f)
	return nil
}

func (p floatProp) String() string {
	return fmt.Sprintf("%.3f", p.Get())
}

type intProp struct{ *Parameter[int] }

func (p intProp) set(f float64) error {
	n := int(math.Round(f))
	if !p.Contains(n) {
		return rangeError(p.min, p.max, f)
	}
	p.Set(n)
	return nil
}

func (p intProp) String() string {
	return fmt.Sprint(p.Get())
}

type durationProp struct{ *Parameter[time.Duration] }

func (p durationProp) set(f float64) error {
	d := time.Duration(math.Round(f * float64(time.Second)))
	if !p.Contains(d) {
		return rangeError(p.min.Seconds(), p.max.Seconds(), f)
	}
	p.Set(d)
	return nil
}

func (p durationProp) String() string {
	return p.Get().Round(time.Microsecond).String()
}

func rangeError(min, max, v interface{}) error {
	return fmt.Errorf("property value is not in valid range %v - %v: %v", min, max, v)
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case time.Duration:
		return n.Seconds(), nil
	}
	return 0, fmt.Errorf("value is not a number: %v", v)
}
