package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// listenMIDI routes messages from an input port to the session until ctx is
// done.
func listenMIDI(ctx context.Context, port string, s *session) error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("midi driver: %w", err)
	}
	defer drv.Close()

	in, err := findInPort(drv, port)
	if err != nil {
		return err
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("open MIDI input %s: %w", in, err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		s.handleMIDI(msg)
	}, midi.HandleError(func(err error) {
		log.Printf("MIDI input %s: %v", in, err)
	}))
	if err != nil {
		in.Close()
		return fmt.Errorf("listen to MIDI input %s: %w", in, err)
	}
	log.Printf("listening to MIDI input %s", in)

	<-ctx.Done()
	stop()
	return in.Close()
}

// findInPort returns the input whose name equals port, or the only input
// containing it.
func findInPort(drv drivers.Driver, port string) (drivers.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	var matches []drivers.In
	var names []string
	for _, in := range ins {
		if in.String() == port {
			return in, nil
		}
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(port)) {
			matches = append(matches, in)
		}
		names = append(names, in.String())
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return nil, fmt.Errorf("MIDI input %q not found, available: %s", port, strings.Join(names, ", "))
}

func (s *session) handleMIDI(msg midi.Message) {
	var ch, key, vel, controller, value uint8
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		for _, v := range s.listeners(ch) {
			v.emitter.NoteOn(key, vel)
		}
	case msg.GetNoteEnd(&ch, &key):
		for _, v := range s.listeners(ch) {
			v.emitter.NoteOff(key, 0)
		}
	case msg.GetControlChange(&ch, &controller, &value):
		for _, v := range s.listeners(ch) {
			s.controlChange(v, controller, value)
		}
	}
}
