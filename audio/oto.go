package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays sources through oto. The oto player pulls interleaved
// float32 samples through Read.
type OtoSink struct {
	sources
	ctx    *oto.Context
	player *oto.Player
	bufs   [][]float32 // non-interleaved scratch buffers, audio goroutine only

	mu      sync.Mutex
	started bool
}

func NewOtoSink(sampleRate int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: numChannels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	s := &OtoSink{ctx: ctx, bufs: make([][]float32, numChannels)}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read implements io.Reader for the oto player.
func (s *OtoSink) Read(p []byte) (int, error) {
	const frameSize = 4 * numChannels
	frames := len(p) / frameSize
	for ch := range s.bufs {
		if cap(s.bufs[ch]) < frames {
			s.bufs[ch] = make([]float32, frames)
		}
		s.bufs[ch] = s.bufs[ch][:frames]
	}
	s.process(s.bufs)
	for i := 0; i < frames; i++ {
		for ch, buf := range s.bufs {
			binary.LittleEndian.PutUint32(p[(i*numChannels+ch)*4:], math.Float32bits(buf[i]))
		}
	}
	return frames * frameSize, nil
}

func (s *OtoSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.player.Play()
		s.started = true
	}
	return nil
}

func (s *OtoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return s.player.Close()
}

func (s *OtoSink) AddSources(sources ...Source) {
	s.add(sources...)
}

func (s *OtoSink) RemoveSource(src Source) {
	s.remove(src)
}
