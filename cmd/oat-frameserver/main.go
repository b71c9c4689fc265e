// Command oat-frameserver serves a frame driver (synthetic pattern
// generator, or a directory of raw frame dumps) to a shared-memory
// SINK, reexpressing original_source/src/frameserver/main.cpp's
// Camera::grabMat/serveMat loop around driver.Driver, a plain interface
// standing in for the camera-hardware class hierarchy this substrate
// doesn't carry.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/visiona/oatbus/config"
	"github.com/visiona/oatbus/driver"
	"github.com/visiona/oatbus/endpoint"
	"github.com/visiona/oatbus/internal/cliutil"
	"github.com/visiona/oatbus/internal/sigctl"
	"github.com/visiona/oatbus/payload"
)

const version = "oat-frameserver v1.0.0"

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: oat-frameserver [INFO]
   or: oat-frameserver TYPE SINK [OPTIONS]
Serve a frame stream to a shared-memory SINK.

TYPE:
  synthetic: deterministic in-process test pattern.
  file:      raw headerless frame dumps read from a directory (-dir).

SINK:
  Address of the shared-memory segment to bind.

OPTIONS:
`)
	fs.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	positional, rest := cliutil.SplitPositional(args, 2)

	fs := flag.NewFlagSet("oat-frameserver", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	rateHz := fs.Float64("rate", 30, "Frames per second.")
	width := fs.Int("width", 64, "Frame width in pixels.")
	height := fs.Int("height", 48, "Frame height in pixels.")
	dir := fs.String("dir", "", "Directory of raw frames, required when TYPE=file.")
	configFile := fs.String("c", "", "Configuration file.")
	configKey := fs.String("k", "", "Configuration key (required with -c).")
	debug := fs.Bool("debug", false, "Enable debug logging.")
	showHelp := fs.Bool("help", false, "Show this help message.")
	showVersion := fs.Bool("version", false, "Print version information.")

	if err := fs.Parse(rest); err != nil {
		return cliutil.ExitUsage
	}
	if *showHelp {
		printUsage(fs)
		return cliutil.ExitOK
	}
	if *showVersion {
		fmt.Println(version)
		return cliutil.ExitOK
	}

	if (*configFile == "") != (*configKey == "") {
		fmt.Fprintln(os.Stderr, "Error: -c must be supplied together with -k.")
		printUsage(fs)
		return cliutil.ExitUsage
	}

	if len(positional) < 2 {
		fmt.Fprintln(os.Stderr, "Error: TYPE and SINK must be specified.")
		printUsage(fs)
		return cliutil.ExitUsage
	}
	driverType, sinkAddr := positional[0], positional[1]

	cfg := config.Default()
	cfg.Address = sinkAddr
	cfg.Driver = driverType
	cfg.RateHz = *rateHz
	cfg.Width = *width
	cfg.Height = *height
	cfg.Dir = *dir

	if *configFile != "" {
		loaded, err := config.Load(*configFile, *configKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return cliutil.ExitFatal
		}
		cfg = *loaded
		cfg.Address = sinkAddr
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	drv, err := buildDriver(driverType, cfg)
	if err != nil {
		log.Error("unsupported driver", "error", err)
		return cliutil.ExitUsage
	}

	if err := drv.Open(); err != nil {
		log.Error("driver open failed", "error", err)
		return cliutil.ExitFatal
	}
	defer drv.Close()

	format := payload.PixelFormatGray8
	extraBytes := cfg.Width * cfg.Height * int(format.BytesPerPixel())

	var sink endpoint.Sink[payload.SharedFrameHeader, *payload.SharedFrameHeader]
	if err := sink.Bind(cfg.Address, extraBytes); err != nil {
		log.Error("sink bind failed", "address", cfg.Address, "error", err)
		return cliutil.ExitFatal
	}
	defer sink.Close()

	ctx, stop := sigctl.Context(log)
	defer stop()

	log.Info("serving frames", "address", cfg.Address, "driver", driverType, "rate_hz", cfg.RateHz)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return cliutil.ExitOK
		default:
		}

		frame, err := drv.Grab()
		if err != nil {
			log.Error("grab failed", "error", err)
			return cliutil.ExitFatal
		}

		hdr, err := sink.Retrieve()
		if err != nil {
			log.Error("retrieve failed", "error", err)
			return cliutil.ExitFatal
		}
		hdr.Width = int32(frame.Width)
		hdr.Height = int32(frame.Height)
		hdr.Format = frame.Format
		hdr.Sample.PeriodSec = 1 / cfg.RateHz

		if buf, ok := sink.View(); ok {
			copy(buf, frame.Pixels)
		}

		sink.Post(uuid.New())
		if sink.Wait() == endpoint.End {
			log.Info("sink reached end of stream")
			return cliutil.ExitOK
		}
	}
}

func buildDriver(driverType string, cfg config.Config) (driver.Driver, error) {
	switch driverType {
	case "synthetic":
		return &driver.Synthetic{Width: cfg.Width, Height: cfg.Height, RateHz: cfg.RateHz}, nil
	case "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("TYPE=file requires -dir")
		}
		return &driver.FileReader{Dir: cfg.Dir, Width: cfg.Width, Height: cfg.Height, Format: payload.PixelFormatGray8}, nil
	default:
		return nil, fmt.Errorf("unknown TYPE %q (want synthetic or file)", driverType)
	}
}
