package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/mrdg/grains/audio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	var (
		backend  = flag.String("backend", "portaudio", "audio output: portaudio or oto")
		rate     = flag.Int("rate", 44100, "output sample rate")
		buffer   = flag.Int("buffer", 256, "frames per audio callback")
		midiPort = flag.String("midi", "", "MIDI input port, empty disables MIDI")
		channel  = flag.Int("channel", 1, "MIDI channel (1-16) of loaded clips")
		run      = flag.String("run", "", "file with commands to run at start-up")
		watch    = flag.Bool("watch", false, "reload clips when their file changes")
		seed     = flag.Int64("seed", 0, "spray random seed, 0 for time based")
		preset   = flag.String("preset", "", "preset applied to loaded clips")
	)
	flag.Parse()

	if *channel < 1 || *channel > 16 {
		log.Fatalf("MIDI channel out of range 1-16: %d", *channel)
	}
	if *preset != "" {
		p := audio.DefaultEmitterParams()
		if err := audio.LoadPreset(*preset, &p); err != nil {
			log.Fatal(err)
		}
	}

	out, err := openOutput(*backend, *rate, *buffer)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("audio output: %s, %d Hz, %d frames per buffer", *backend, *rate, *buffer)

	s := newSession(out, *rate, os.Stdout)
	s.channel = uint8(*channel - 1)
	s.seed = *seed
	s.preset = *preset

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if *watch {
		w, err := newWatcher(s.reload)
		if err != nil {
			log.Fatal(err)
		}
		s.watcher = w
		g.Go(func() error { return w.run(ctx) })
	}

	for _, path := range flag.Args() {
		if _, err := s.load(path, ""); err != nil {
			log.Fatal(err)
		}
	}
	if *run != "" {
		if err := runFile(s, *run); err != nil {
			log.Fatal(err)
		}
	}

	if *midiPort != "" {
		g.Go(func() error { return listenMIDI(ctx, *midiPort, s) })
	}
	g.Go(func() error {
		defer cancel()
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return repl(s)
		}
		if err := script(s, os.Stdin, s.w); err != nil {
			return err
		}
		// keep playing MIDI input until interrupted
		if *midiPort != "" {
			<-ctx.Done()
		}
		return nil
	})

	err = g.Wait()
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func openOutput(backend string, sampleRate, bufferSize int) (audio.Output, error) {
	var (
		out audio.Output
		err error
	)
	switch backend {
	case "portaudio":
		out, err = audio.NewSink(sampleRate, bufferSize)
	case "oto":
		out, err = audio.NewOtoSink(sampleRate)
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", backend)
	}
	if err != nil {
		return nil, err
	}
	if err := out.Start(); err != nil {
		return nil, err
	}
	return out, nil
}

func runFile(s *session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := script(s, f, s.w); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// script evaluates commands line by line and stops at the first error.
func script(s *session, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result, err := s.eval(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if result != "" {
			fmt.Fprintln(w, result)
		}
	}
	return scanner.Err()
}
