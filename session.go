package main

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mrdg/grains/audio"
)

// voice is an emitter loaded from a clip file. params mirrors the last
// parameters sent to the emitter so commands can derive new snapshots.
type voice struct {
	name    string
	path    string
	channel uint8 // MIDI channel, 0-based
	clip    *audio.Clip[float32]
	emitter *audio.Emitter[float32]
	params  audio.EmitterParams
}

type session struct {
	out     audio.Output
	rate    int
	channel uint8
	seed    int64
	preset  string
	watcher *watcher
	w       io.Writer

	mu     sync.Mutex
	voices map[string]*voice
}

func newSession(out audio.Output, sampleRate int, w io.Writer) *session {
	return &session{
		out:    out,
		rate:   sampleRate,
		w:      w,
		voices: make(map[string]*voice),
	}
}

func (s *session) emitterOptions(params audio.EmitterParams) []audio.Option {
	opts := []audio.Option{
		audio.WithParams(params),
		audio.WithSampleRate(s.rate),
	}
	if s.seed != 0 {
		opts = append(opts, audio.WithRand(rand.New(rand.NewSource(s.seed))))
	}
	return opts
}

// load decodes a clip file and adds it as a voice.
func (s *session) load(path, name string) (*voice, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	clip, err := audio.LoadClip[float32](abs)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = displayName(path)
	}
	return s.add(name, abs, clip)
}

// add plays clip through a new emitter. Adding an existing name replaces the
// clip of that emitter. Clips that were not loaded from a file have no path.
func (s *session) add(name, path string, clip *audio.Clip[float32]) (*voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.voices[name]; ok {
		old := v.path
		v.path, v.clip = path, clip
		v.emitter.SetClip(clip)
		s.unwatch(old)
		s.watch(path)
		log.Printf("replaced clip of %s with %s", name, clip.Name())
		return v, nil
	}

	params := audio.DefaultEmitterParams()
	if s.preset != "" {
		if err := audio.LoadPreset(s.preset, &params); err != nil {
			return nil, err
		}
	}
	v := &voice{
		name:    name,
		path:    path,
		channel: s.channel,
		clip:    clip,
		params:  params,
	}
	v.emitter = audio.NewEmitter(clip, s.emitterOptions(params)...)
	s.voices[name] = v
	s.out.AddSources(v.emitter)
	s.watch(path)

	log.Printf("loaded %s as %s: %d channels, %d Hz, %d frames",
		clip.Name(), name, clip.Channels(), clip.SampleRate(), clip.Frames())
	return v, nil
}

func (s *session) unload(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voices[name]
	if !ok {
		return fmt.Errorf("unknown voice: %s", name)
	}
	s.out.RemoveSource(v.emitter)
	v.emitter.Terminate()
	delete(s.voices, name)
	s.unwatch(v.path)
	return nil
}

func (s *session) watch(path string) {
	if s.watcher == nil || path == "" {
		return
	}
	if err := s.watcher.add(path); err != nil {
		log.Printf("watch %s: %v", path, err)
	}
}

// unwatch stops watching path when no other voice plays it. Callers hold mu.
func (s *session) unwatch(path string) {
	if s.watcher == nil || path == "" {
		return
	}
	for _, v := range s.voices {
		if v.path == path {
			return
		}
	}
	s.watcher.remove(path)
}

// reload decodes path again and sends the clip to every voice playing it.
// The old clip stays when decoding fails.
func (s *session) reload(path string) {
	clip, err := audio.LoadClip[float32](path)
	if err != nil {
		log.Printf("reload: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voices {
		if v.path == path {
			v.clip = clip
			v.emitter.SetClip(clip)
			log.Printf("reloaded %s", v.name)
		}
	}
}

func (s *session) voice(name string) (*voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voices[name]
	if !ok {
		return nil, fmt.Errorf("unknown voice: %s", name)
	}
	return v, nil
}

// update applies f to a copy of the voice's parameters and sends the result
// to its emitter. Nothing is sent when f fails.
func (s *session) update(name string, f func(*audio.EmitterParams) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voices[name]
	if !ok {
		return fmt.Errorf("unknown voice: %s", name)
	}
	params := v.params
	if err := f(&params); err != nil {
		return err
	}
	v.params = params
	v.emitter.SetParams(params)
	return nil
}

func (s *session) controlChange(v *voice, controller, value uint8) {
	v.params.ApplyCC(controller, value)
	v.emitter.ControlChange(controller, value)
}

// listeners returns the voices on a MIDI channel. Callers hold mu.
func (s *session) listeners(channel uint8) []*voice {
	var voices []*voice
	for _, name := range s.namesLocked() {
		if v := s.voices[name]; v.channel == channel {
			voices = append(voices, v)
		}
	}
	return voices
}

func (s *session) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

func (s *session) namesLocked() []string {
	names := make([]string, 0, len(s.voices))
	for name := range s.voices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *session) close() error {
	s.mu.Lock()
	for _, v := range s.voices {
		v.emitter.Terminate()
	}
	s.mu.Unlock()
	return s.out.Stop()
}
