package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/acediac/mythtv/internal/audio"
	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal/portaudio"
	"github.com/acediac/mythtv/internal/audio/output"
	"github.com/acediac/mythtv/internal/config"
	"github.com/acediac/mythtv/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	var (
		listDevices = flag.Bool("list-devices", false, "List output devices and exit")
		probe       = flag.Bool("probe", false, "Probe device capabilities and exit")
		play        = flag.String("play", "", "Play the given audio file")
		device      = flag.String("device", "", "Output device name (default: system default)")
		passthrough = flag.Bool("passthrough", false, "Prefer compressed bitstream output")
		simple      = flag.Bool("simple", false, "Use the simple backend (no device negotiation)")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		version     = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	// Show version and exit
	if *version {
		fmt.Printf("MythAudio %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Initialize configuration
	cfg := config.Get()

	// Initialize logger
	logConfig := logger.DefaultConfig()
	logConfig.Console = cfg.Logging.Console
	logConfig.File = cfg.Logging.File
	logConfig.Level = cfg.Logging.Level
	if *logLevel != "" {
		logConfig.Level = *logLevel
	}
	logConfig.FilePath = cfg.App.LogDir + "/mythaudio.log"
	logger.Initialize(logConfig)
	defer logger.Get().Close()

	logger.Info("MythAudio starting",
		logger.String("version", Version),
		logger.String("build_time", BuildTime),
	)

	if *device == "" {
		*device = cfg.Audio.OutputDevice
	}
	if !*passthrough {
		*passthrough = cfg.Audio.Passthrough
	}
	if !*simple {
		*simple = cfg.Audio.OutputMode == "simple"
	}

	switch {
	case *listDevices:
		runListDevices()
	case *probe:
		runProbe(*device, *passthrough, cfg)
	case *play != "":
		runPlay(*play, *device, *passthrough, *simple, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runListDevices() {
	hw, err := portaudio.New()
	if err != nil {
		logger.Fatal("Failed to initialize audio hardware", logger.Error(err))
	}
	defer hw.Close()

	devices := output.EnumerateDevices(hw)
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		channels, _ := hw.OutputChannels(devices[name])
		fmt.Printf("%-40s %d channel(s)\n", name, channels)
	}
}

func runProbe(device string, passthrough bool, cfg *config.Config) {
	hw, err := portaudio.New()
	if err != nil {
		logger.Fatal("Failed to initialize audio hardware", logger.Error(err))
	}
	defer hw.Close()

	backend := output.NewNative(hw, output.NewAccessContext(hw), device,
		output.WithBitstreamTags(bitstreamTags(cfg)...))

	caps, err := backend.Capabilities(passthrough)
	if err != nil {
		logger.Fatal("Failed to probe device", logger.Error(err))
	}

	fmt.Printf("Sample rates: %v\n", caps.Rates)
	fmt.Printf("Channels:     %v\n", caps.Channels)
	fmt.Printf("Passthrough:  %v\n", caps.Passthrough)
}

func runPlay(path, device string, passthrough, simple bool, cfg *config.Config) {
	var backend output.Backend
	if simple {
		backend = output.NewOto()
	} else {
		hw, err := portaudio.New()
		if err != nil {
			logger.Fatal("Failed to initialize audio hardware", logger.Error(err))
		}
		defer hw.Close()

		backend = output.NewNative(hw, output.NewAccessContext(hw), device,
			output.WithBitstreamTags(bitstreamTags(cfg)...))
	}

	engine := audio.NewEngine(backend)
	if err := engine.Load(path, passthrough, cfg.Audio.BufferSize); err != nil {
		logger.Fatal("Failed to start playback", logger.Error(err))
	}
	if err := engine.SetVolume(cfg.Audio.Volume); err != nil {
		logger.Warn("Failed to set volume", logger.Error(err))
	}

	// Stop cleanly on interrupt so exclusive access and device formats
	// are restored.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		engine.Wait()
		close(done)
	}()

	select {
	case <-interrupt:
		logger.Info("Interrupted, stopping playback")
		engine.Stop()
	case <-done:
	}
}

// bitstreamTags merges the built-in bitstream format tags with any extras
// from the configuration.
func bitstreamTags(cfg *config.Config) []format.FourCC {
	tags := format.DefaultBitstreamTags()
	for _, s := range cfg.Advanced.ExtraBitstreamTags {
		if len(s) == 4 {
			tags = append(tags, format.MakeFourCC(s))
		}
	}
	return tags
}
