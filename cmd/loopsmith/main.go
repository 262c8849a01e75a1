package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/cmd"
	"github.com/loopsmith/loopsmith/config"
	"github.com/loopsmith/loopsmith/control"
	"github.com/loopsmith/loopsmith/engine"
	"github.com/loopsmith/loopsmith/oto"
	"github.com/loopsmith/loopsmith/playhead"
	"github.com/loopsmith/loopsmith/version"
)

var (
	configFile   = flag.String("config", "", "read settings from YAML `file`")
	inputFile    = flag.String("input", "", "loop the WAV `file` as the input signal")
	midiInput    = flag.String("midi-input", "", "connect MIDI input to matching device name prefix")
	versionFlag  = flag.Bool("v", false, "Print version.")
	statusPeriod = flag.Duration("status", 0, "print the status every `interval`; 0 disables")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	var input loopsmith.AudioBuffer
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			log.Fatal(err)
		}
		var sr int
		input, sr, err = loopsmith.ReadWav(f)
		f.Close()
		if err != nil {
			log.Fatalf("could not read %s: %v", *inputFile, err)
		}
		if float64(sr) != cfg.SampleRate {
			log.Printf("using the sample rate of %s: %d Hz", *inputFile, sr)
			cfg.SampleRate = float64(sr)
		}
	}

	e := engine.New(cfg, playhead.NewStandalone(cfg.SampleRate))
	defer e.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go e.Collector.Run(ctx, cfg.DrainInterval)
	go e.Meter.Run()
	defer e.StopMeter()

	bindings, err := control.NewBindings(cfg.MIDI.Bindings)
	if err != nil {
		log.Fatalf("midi bindings: %v", err)
	}
	midiContext := cmd.NewMidiContext(bindings.HandleMessage)
	defer midiContext.Close()
	prefix := cfg.MIDI.Input
	if isFlagPassed("midi-input") {
		prefix = *midiInput
	}
	if err := midiContext.TryToOpenBy(prefix, false); err != nil {
		log.Printf("failed to open MIDI input '%s': %v", prefix, err)
	}

	audioContext, err := oto.NewContext(int(cfg.SampleRate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
		os.Exit(1)
	}
	var in loopsmith.AudioBuffer
	pos := 0
	audioCloser := audioContext.Play(func(buf loopsmith.AudioBuffer) error {
		if cap(in) < len(buf) {
			in = make(loopsmith.AudioBuffer, len(buf))
		}
		in = in[:len(buf)]
		pos = input.Loop(in, pos)
		e.Player.Process(in, buf)
		return nil
	})
	defer audioCloser.Close()

	lines := make(chan string)
	go func() {
		s := bufio.NewScanner(os.Stdin)
		for s.Scan() {
			lines <- s.Text()
		}
		close(lines)
	}()
	var tick <-chan time.Time
	if *statusPeriod > 0 {
		t := time.NewTicker(*statusPeriod)
		defer t.Stop()
		tick = t.C
	}
	alertTicker := time.NewTicker(100 * time.Millisecond)
	defer alertTicker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(e, line); quit {
				return
			}
		case c := <-bindings.Commands():
			if err := e.Model.Do(c); err != nil {
				log.Print(err)
			}
		case <-tick:
			e.Model.Update()
			control.WriteStatus(os.Stdout, e.Model.Status(), e.Model.Meter())
		case now := <-alertTicker.C:
			e.Model.Update()
			alerts := e.Model.Alerts()
			for a := range alerts.Unseen {
				log.Printf("%s: %s", a.Priority, a.Message)
			}
			alerts.Update(now.Sub(last))
			last = now
		}
	}
}

// handleLine runs one line typed by the user and reports whether the
// program should quit.
func handleLine(e *engine.Engine, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "status":
		e.Model.Update()
		control.WriteStatus(os.Stdout, e.Model.Status(), e.Model.Meter())
		return false
	}
	c, err := control.ParseLine(line)
	if err == nil {
		err = e.Model.Do(c)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return false
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "loopsmith - a live multitrack looper\nUsage: %s [flags]\n\nCommands, read from standard input:\n", os.Args[0])
	fmt.Fprint(os.Stderr, `  rec T              toggle recording / overdub of track T
  play T             toggle playback of track T
  clear T            clear track T
  vol T V, dry T V   set the volume or dry volume of track T
  trig T S           toggle the trigger at step S of track T
  lock T S P V       lock parameter P (volume, dry) of a trigger
  unlock T S P       remove a lock
  start, pause, stop transport
  tempo BPM          set the tempo
  gain V, monitor V  set the master or input monitor gain
  status, quit

Flags:
`)
	flag.PrintDefaults()
}
