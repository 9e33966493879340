package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mrdg/grains/audio"
	"github.com/mrdg/grains/dub"
)

const defaultVelocity = 100

func loadCommand(s *session, args []dub.Node) (string, error) {
	var file, name string
	if err := readArgs(args, &file, &name); err != nil {
		return "", err
	}
	v, err := s.load(file, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s on channel %d", v.name, v.clip.Name(), v.channel+1), nil
}

func toneCommand(s *session, args []dub.Node) (string, error) {
	var (
		name, wave      string
		key             uint8
		seconds, cutoff float64
	)
	if err := readArgs(args, &name, &wave, &key, &seconds, &cutoff); err != nil {
		return "", err
	}
	d := time.Duration(seconds * float64(time.Second))
	clip, err := audio.ToneClip[float32](wave, key, cutoff, d, s.rate)
	if err != nil {
		return "", err
	}
	v, err := s.add(name, "", clip)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s on channel %d", v.name, clip.Name(), v.channel+1), nil
}

func unloadCommand(s *session, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	return "", s.unload(name)
}

func noteOnCommand(s *session, args []dub.Node) (string, error) {
	var (
		name     string
		keys     dub.KeySet
		velocity uint8 = defaultVelocity
	)
	if err := readArgs(args, &name, &keys, &velocity); err != nil {
		return "", err
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	for _, k := range keys.Keys() {
		v.emitter.NoteOn(uint8(k), velocity)
	}
	return "", nil
}

func noteOffCommand(s *session, args []dub.Node) (string, error) {
	var (
		name string
		keys dub.KeySet
	)
	if err := readArgs(args, &name, &keys); err != nil {
		return "", err
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	for _, k := range keys.Keys() {
		v.emitter.NoteOff(uint8(k), 0)
	}
	return "", nil
}

func setCommand(s *session, args []dub.Node) (string, error) {
	var name, param string
	if err := readArgs(args[:2], &name, &param); err != nil {
		return "", err
	}
	var value interface{}
	switch v := args[2].(type) {
	case dub.Int:
		value = int(v)
	case dub.Float:
		value = float64(v)
	default:
		return "", fmt.Errorf("unsupported property type: %v", v)
	}
	return "", s.update(name, func(p *audio.EmitterParams) error {
		return p.Set(param, value)
	})
}

func ccCommand(s *session, args []dub.Node) (string, error) {
	var (
		name              string
		controller, value uint8
	)
	if err := readArgs(args, &name, &controller, &value); err != nil {
		return "", err
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.controlChange(v, controller, value)
	s.mu.Unlock()
	return "", nil
}

func mapCommand(s *session, args []dub.Node) (string, error) {
	var (
		name, param string
		controller  uint8
	)
	if err := readArgs(args, &name, &controller, &param); err != nil {
		return "", err
	}
	cp, err := audio.ParseControlParam(param)
	if err != nil {
		return "", err
	}
	var mapped []string
	err = s.update(name, func(p *audio.EmitterParams) error {
		for _, m := range p.CCMap {
			if m.Controller == controller {
				mapped = append(mapped, m.Param.String())
			}
		}
		p.CCMap = p.Map(controller, cp)
		return nil
	})
	if err != nil || len(mapped) == 0 {
		return "", err
	}
	return fmt.Sprintf("warning: controller %d is also mapped to %s", controller, strings.Join(mapped, ", ")), nil
}

func unmapCommand(s *session, args []dub.Node) (string, error) {
	var (
		name       string
		controller uint8
	)
	if err := readArgs(args, &name, &controller); err != nil {
		return "", err
	}
	return "", s.update(name, func(p *audio.EmitterParams) error {
		p.CCMap = p.Unmap(controller)
		return nil
	})
}

func modeCommand(s *session, args []dub.Node) (string, error) {
	var name, mode string
	if err := readArgs(args, &name, &mode); err != nil {
		return "", err
	}
	m, err := audio.ParseKeyMode(mode)
	if err != nil {
		return "", err
	}
	return "", s.update(name, func(p *audio.EmitterParams) error {
		p.KeyMode = m
		return nil
	})
}

func polyCommand(s *session, args []dub.Node) (string, error) {
	var (
		name string
		n    int
	)
	if err := readArgs(args, &name, &n); err != nil {
		return "", err
	}
	return "", s.update(name, func(p *audio.EmitterParams) error {
		return p.Set(audio.ParamPolyphony.String(), n)
	})
}

func presetCommand(s *session, args []dub.Node) (string, error) {
	var name, preset string
	if err := readArgs(args, &name, &preset); err != nil {
		return "", err
	}
	return "", s.update(name, func(p *audio.EmitterParams) error {
		return audio.LoadPreset(preset, p)
	})
}

func channelCommand(s *session, args []dub.Node) (string, error) {
	var (
		name string
		ch   int
	)
	if err := readArgs(args, &name, &ch); err != nil {
		return "", err
	}
	if ch < 1 || ch > 16 {
		return "", fmt.Errorf("MIDI channel out of range 1-16: %d", ch)
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	v.channel = uint8(ch - 1)
	s.mu.Unlock()
	return "", nil
}

func showCommand(s *session, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	names := []string{name}
	if name == "" {
		names = s.names()
	}
	var b strings.Builder
	for i, name := range names {
		v, err := s.voice(name)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		s.mu.Lock()
		renderVoice(&b, v, v.emitter.Snapshot(), displayWidth)
		s.mu.Unlock()
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// renderCommand plays keys on a copy of a voice and writes the result,
// including the release tail, to a wav file. With a step the keys are struck
// one after another, step seconds apart.
func renderCommand(s *session, args []dub.Node) (string, error) {
	var (
		name, file    string
		seconds, step float64
		keys          dub.KeySet
	)
	if err := readArgs(args, &name, &file, &seconds, &keys, &step); err != nil {
		return "", err
	}
	if seconds <= 0 {
		return "", fmt.Errorf("duration must be positive: %v", seconds)
	}
	if step < 0 {
		return "", fmt.Errorf("step must not be negative: %v", step)
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	clip, params := v.clip, v.params
	s.mu.Unlock()

	var score audio.Score
	hold := seconds * float64(time.Second)
	for i, k := range keys.Keys() {
		at := time.Duration(float64(i) * step * float64(time.Second))
		score.AddNote(at, uint8(k), defaultVelocity, time.Duration(hold))
	}
	e := audio.NewEmitter(clip, s.emitterOptions(params)...)
	samples := audio.RenderScore(e, &score, params.Release.Get()+params.Length.Get(), nil)

	f, err := os.Create(file)
	if err != nil {
		return "", err
	}
	if err := audio.WriteWAV(f, samples, s.rate, e.Channels()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	d := time.Duration(len(samples) / e.Channels() * int(time.Second) / s.rate)
	return fmt.Sprintf("wrote %s (%v)", file, d.Round(time.Millisecond)), nil
}

func listCommand(s *session, args []dub.Node) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []string
	for _, name := range s.namesLocked() {
		v := s.voices[name]
		lines = append(lines, fmt.Sprintf("%s\t%s\tch %d\t%v", name, v.clip.Name(), v.channel+1, v.params.KeyMode))
	}
	return strings.Join(lines, "\n"), nil
}

func helpCommand(s *session, args []dub.Node) (string, error) {
	var lines []string
	for _, cmd := range commands {
		lines = append(lines, cmd.usage)
	}
	lines = append(lines, "params: "+strings.Join(paramNames(), " "))
	lines = append(lines, "presets: "+strings.Join(audio.Presets(), " "))
	lines = append(lines, "waveforms: "+strings.Join(audio.Waveforms, " "))
	return strings.Join(lines, "\n"), nil
}

func paramNames() []string {
	var names []string
	for _, cp := range audio.ControlParams() {
		names = append(names, cp.String())
	}
	return names
}
