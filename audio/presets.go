package audio

import (
	"fmt"
	"sort"
)

type Device interface {
	Set(key string, val interface{}) error
	Get(key string) (interface{}, error)
}

type preset map[string]interface{}

var presets = map[string]preset{
	"init": {
		"position":     0.,
		"spray":        0.,
		"length":       0.1,
		"density":      10.,
		"grain.amount": 0.5,
		"grain.skew":   0.,
		"env.attack":   0.001,
		"env.decay":    1.,
		"env.sustain":  1.,
		"env.release":  0.015,
		"transpose":    0,
		"level":        1.,
	},
	"cloud": {
		"spray":        0.25,
		"length":       0.3,
		"density":      40.,
		"grain.amount": 1.,
		"env.attack":   0.4,
		"env.release":  1.5,
		"level":        0.6,
	},
	"stutter": {
		"spray":        0.,
		"length":       0.04,
		"density":      12.,
		"grain.amount": 0.2,
		"grain.skew":   -0.8,
		"env.release":  0.05,
	},
	"pad": {
		"length":       0.5,
		"density":      20.,
		"grain.amount": 0.9,
		"env.attack":   1.,
		"env.decay":    2.,
		"env.sustain":  0.7,
		"env.release":  3.,
	},
}

func LoadPreset(name string, d Device) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset: %v", name)
	}
	for k, v := range p {
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	var names []string
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
