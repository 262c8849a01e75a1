package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/config"
	"github.com/loopsmith/loopsmith/engine"
	"github.com/loopsmith/loopsmith/playhead"
	"github.com/loopsmith/loopsmith/render"
	"github.com/loopsmith/loopsmith/version"
)

func main() {
	configFile := flag.String("config", "", "read settings from YAML `file`")
	output := flag.String("o", "", "write the rendered audio to WAV `file`; by default only the summary is printed")
	rawOut := flag.Bool("r", false, "Write raw samples instead of WAV: stereo float32, or 16-bit PCM with -c.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when writing raw samples.")
	tempo := flag.Float64("tempo", 0, "start with the transport running at `bpm`; 0 waits for the first loop")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] input.wav script.yml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	input, sampleRate, err := readInput(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	cfg.SampleRate = float64(sampleRate)
	script, err := readScript(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}
	p := playhead.NewStandalone(cfg.SampleRate)
	if *tempo > 0 {
		p.SetTempo(*tempo)
		p.Play()
	}
	e := engine.New(cfg, p)
	defer e.Close()
	out, sum := render.Run(e, input, script, cfg.SampleRate)
	if *output != "" {
		write := func(f *os.File) error { return loopsmith.WriteWav(f, out, sampleRate) }
		if *rawOut {
			write = func(f *os.File) error {
				raw, err := loopsmith.Raw(out, *pcm)
				if err != nil {
					return err
				}
				_, err = f.Write(raw)
				return err
			}
		}
		if err := writeOutput(*output, write); err != nil {
			log.Fatal(err)
		}
	}
	if err := render.WriteSummary(os.Stdout, sum); err != nil {
		log.Fatal(err)
	}
}

func readInput(path string) (loopsmith.AudioBuffer, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	buf, sr, err := loopsmith.ReadWav(f)
	if err != nil {
		return nil, 0, fmt.Errorf("could not read %v: %w", path, err)
	}
	return buf, sr, nil
}

func readScript(path string) (render.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return render.Script{}, err
	}
	defer f.Close()
	s, err := render.ReadScript(f)
	if err != nil {
		return render.Script{}, fmt.Errorf("%v: %w", path, err)
	}
	return s, nil
}

func writeOutput(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", path, err)
	}
	if err := errors.Join(write(f), f.Close()); err != nil {
		return fmt.Errorf("could not write %v: %w", path, err)
	}
	return nil
}
