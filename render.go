package main

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/mrdg/grains/audio"
)

const displayWidth = 64

var levels = []rune(" ▁▂▃▄▅▆▇█")

// renderVoice draws the clip waveform with live grain positions under it,
// followed by the parameter table.
func renderVoice(w io.Writer, v *voice, snap audio.Snapshot, width int) {
	fmt.Fprintf(w, "%s %s ch %d %v  notes %d  grains %d\n",
		colorize(v.name, colorGreen),
		formatClipName(v.clip.Name(), 24),
		v.channel+1,
		v.params.KeyMode,
		snap.Notes,
		len(snap.Grains),
	)
	fmt.Fprintln(w, colorize(waveformLine(v.clip.Waveform(width)), colorBlue))
	fmt.Fprintln(w, colorize(grainLine(snap.Grains, width), colorYellow))

	for _, cp := range audio.ControlParams() {
		val, _ := v.params.Get(cp.String())
		fmt.Fprintf(w, "%-13s %-10v %s\n", cp, val, meter(v.params.Normalized(cp), 20))
	}
	if len(v.params.CCMap) > 0 {
		var ccs []string
		for _, m := range v.params.CCMap {
			ccs = append(ccs, fmt.Sprintf("%d→%v", m.Controller, m.Param))
		}
		fmt.Fprintln(w, colorize("cc "+strings.Join(ccs, " "), colorMagenta))
	}
}

func waveformLine(bins []audio.Bin) string {
	var b strings.Builder
	for _, bin := range bins {
		amp := math.Max(-bin.Min, bin.Max)
		i := int(math.Round(amp * float64(len(levels)-1)))
		if i >= len(levels) {
			i = len(levels) - 1
		}
		b.WriteRune(levels[i])
	}
	return b.String()
}

func grainLine(grains []audio.GrainView, width int) string {
	cells := []rune(strings.Repeat(" ", width))
	for _, g := range grains {
		i := int(g.Position * float64(width))
		if i < 0 || width == 0 {
			continue
		}
		if i >= width {
			i = width - 1
		}
		cells[i] = '•'
	}
	return string(cells)
}

func meter(n float64, width int) string {
	filled := int(math.Round(n * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatClipName(name string, max int) string {
	runes := []rune(displayName(name))

	if len(runes) > max {
		runes = append(runes[:max-1], '…')
	}
	name = string(runes)
	if len(runes) < max {
		name += strings.Repeat(" ", max-len(runes))
	}
	return colorize(name, colorBlue)
}

func displayName(filename string) string {
	filename = filepath.Base(filename)
	return filename[:len(filename)-len(filepath.Ext(filename))]
}

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}
