package audio

import (
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// Render pulls up to frames interleaved frames from an emitter that is not
// attached to a sink and appends them to dst.
func Render[S Sample](e *Emitter[S], frames int, dst []S) []S {
	buf := make([]S, frames*e.Channels())
	n, _ := e.Stream(buf)
	return append(dst, buf[:n]...)
}

// WriteWAV writes interleaved samples as 16 bit PCM.
func WriteWAV[S Sample](w io.WriteSeeker, samples []S, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		buf.Data[i] = int(math.Round(v * math.MaxInt16))
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "write wav")
	}
	return errors.Wrap(enc.Close(), "close wav")
}
