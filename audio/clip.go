package audio

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2/flac"
	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"
	wav "github.com/youpy/go-wav"
)

// Sample is the numeric type of a decoded sample.
type Sample interface {
	~float32 | ~float64
}

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyClip         = errors.New("audio file contains no samples")
)

// Clip is an immutable buffer of interleaved samples. Clips are shared by
// pointer between an emitter and all of its grains and must not be modified
// after construction.
type Clip[S Sample] struct {
	data       []S
	channels   int
	sampleRate int
	name       string
}

// NewClip wraps interleaved samples. The clip takes ownership of data. A
// trailing partial frame is dropped.
func NewClip[S Sample](data []S, channels, sampleRate int) *Clip[S] {
	if channels <= 0 || sampleRate <= 0 {
		panic("clip needs at least one channel and a positive sample rate")
	}
	return &Clip[S]{
		data:       data[:len(data)-len(data)%channels],
		channels:   channels,
		sampleRate: sampleRate,
	}
}

func (c *Clip[S]) Channels() int   { return c.channels }
func (c *Clip[S]) SampleRate() int { return c.sampleRate }
func (c *Clip[S]) Frames() int     { return len(c.data) / c.channels }
func (c *Clip[S]) Name() string    { return c.name }

func (c *Clip[S]) Duration() time.Duration {
	return time.Duration(float64(c.Frames()) / float64(c.sampleRate) * float64(time.Second))
}

// Sample returns the sample at frame and channel, or zero outside the clip.
// Channels beyond the clip's channel count read the last channel.
func (c *Clip[S]) Sample(frame, channel int) S {
	if frame < 0 || frame >= c.Frames() {
		return 0
	}
	if channel >= c.channels {
		channel = c.channels - 1
	}
	return c.data[frame*c.channels+channel]
}

// Bin is the sample range covered by one column of a waveform display.
type Bin struct {
	Min, Max float64
}

// Waveform reduces the clip to n min/max bins over all channels.
func (c *Clip[S]) Waveform(n int) []Bin {
	if n <= 0 {
		return nil
	}
	bins := make([]Bin, n)
	frames := c.Frames()
	for i := range bins {
		start := i * frames / n
		end := (i + 1) * frames / n
		if end == start && start < frames {
			end = start + 1
		}
		lo, hi := 0.0, 0.0
		for _, s := range c.data[start*c.channels : end*c.channels] {
			lo = math.Min(lo, float64(s))
			hi = math.Max(hi, float64(s))
		}
		bins[i] = Bin{Min: lo, Max: hi}
	}
	return bins
}

// LoadClip decodes a wav, mp3 or flac file.
func LoadClip[S Sample](path string) (*Clip[S], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	defer f.Close()

	var (
		data       []float64
		channels   int
		sampleRate int
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		data, channels, sampleRate, err = decodeWAV(f)
	case ".mp3":
		data, channels, sampleRate, err = decodeMP3(f)
	case ".flac":
		data, channels, sampleRate, err = decodeFLAC(f)
	default:
		err = errors.Wrap(ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	if len(data) < channels || channels == 0 {
		return nil, errors.Wrapf(ErrEmptyClip, "load %s", path)
	}

	samples := make([]S, len(data))
	for i, v := range data {
		samples[i] = S(v)
	}
	clip := NewClip(samples, channels, sampleRate)
	clip.name = filepath.Base(path)
	return clip, nil
}

func decodeWAV(f *os.File) ([]float64, int, int, error) {
	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, 0, 0, err
	}
	channels := int(format.NumChannels)
	if channels > 2 {
		return nil, 0, 0, errors.Errorf("%d channel wav files are not supported", channels)
	}
	var data []float64
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
		for _, sample := range samples {
			for ch := 0; ch < channels; ch++ {
				data = append(data, wavValue(format, r.IntValue(sample, uint(ch))))
			}
		}
	}
	return data, channels, int(format.SampleRate), nil
}

// wavValue scales a decoded wav sample to [-1,1]. The reader stores float
// samples multiplied by MaxInt32 and 8 bit samples unsigned.
func wavValue(format *wav.WavFormat, v int) float64 {
	switch {
	case format.AudioFormat == wav.AudioFormatIEEEFloat:
		return float64(v) / math.MaxInt32
	case format.BitsPerSample == 8:
		return float64(v-128) / 128
	}
	return float64(v) / float64(int(1)<<(format.BitsPerSample-1))
}

// decodeMP3 reads the decoder's 16 bit little endian stereo output.
func decodeMP3(f *os.File) ([]float64, int, int, error) {
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, 0, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, 0, err
	}
	data := make([]float64, len(raw)/2)
	for i := range data {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		data[i] = float64(v) / (1 << 15)
	}
	return data, 2, d.SampleRate(), nil
}

func decodeFLAC(f *os.File) ([]float64, int, int, error) {
	stream, format, err := flac.Decode(f)
	if err != nil {
		return nil, 0, 0, err
	}
	defer stream.Close()

	channels := format.NumChannels
	if channels > 2 {
		channels = 2
	}
	var data []float64
	buf := make([][2]float64, 1024)
	for {
		n, ok := stream.Stream(buf)
		for _, frame := range buf[:n] {
			data = append(data, frame[:channels]...)
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, 0, 0, err
	}
	return data, channels, int(format.SampleRate), nil
}
