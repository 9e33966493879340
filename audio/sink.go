package audio

import (
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// Source adds non-interleaved output to a buffer.
type Source interface {
	Process([][]float32)
}

// Output is an audio device that pulls from a set of sources.
type Output interface {
	Start() error
	Stop() error
	AddSources(sources ...Source)
	RemoveSource(src Source)
}

// sources is a copy-on-write source list. The audio callback only loads it.
type sources struct {
	mu   sync.Mutex
	list atomic.Pointer[[]Source]
}

func (s *sources) add(srcs ...Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Source
	if cur := s.list.Load(); cur != nil {
		list = append(list, *cur...)
	}
	list = append(list, srcs...)
	s.list.Store(&list)
}

func (s *sources) remove(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.list.Load()
	if cur == nil {
		return
	}
	var list []Source
	for _, x := range *cur {
		if x != src {
			list = append(list, x)
		}
	}
	s.list.Store(&list)
}

func (s *sources) process(samples [][]float32) {
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = 0.
		}
	}
	list := s.list.Load()
	if list == nil {
		return
	}
	for _, source := range *list {
		source.Process(samples)
	}
}

// Sink plays sources through the default portaudio output device.
type Sink struct {
	sources
	stream *portaudio.Stream
}

func NewSink(sampleRate, bufferSize int) (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	s := &Sink{}
	stream, err := portaudio.OpenDefaultStream(0, numChannels, float64(sampleRate), bufferSize, s.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	return s, nil
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

func (s *Sink) Stop() error {
	s.stream.Close()
	return portaudio.Terminate()
}

func (s *Sink) AddSources(sources ...Source) {
	s.add(sources...)
}

func (s *Sink) RemoveSource(src Source) {
	s.remove(src)
}

func (s *Sink) Process(samples [][]float32) {
	s.process(samples)
}
