// Command oat-recorder connects to one or more frame and position
// SOURCEs and records them to disk, reexpressing
// original_source/src/recorder/{main,Recorder}.cpp's repeated -source
// CLI shape around the recorder package.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/visiona/oatbus/config"
	"github.com/visiona/oatbus/internal/cliutil"
	"github.com/visiona/oatbus/internal/sigctl"
	"github.com/visiona/oatbus/payload"
	"github.com/visiona/oatbus/recorder"
)

const version = "oat-recorder v1.0.0"

// addrList accumulates repeated -frame-source/-position-source flags,
// the stdlib flag.Value idiom for "may be given more than once".
type addrList []string

func (l *addrList) String() string { return strings.Join(*l, ",") }
func (l *addrList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: oat-recorder [INFO]
   or: oat-recorder [OPTIONS] -frame-source ADDR ... -position-source ADDR ...
Record one or more frame and position SOURCEs to disk.

OPTIONS:
`)
	fs.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("oat-recorder", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var frameSources, positionSources addrList
	fs.Var(&frameSources, "frame-source", "Address of a frame source to record (may be repeated).")
	fs.Var(&positionSources, "position-source", "Address of a position source to record (may be repeated).")
	outputDir := fs.String("output-dir", ".", "Directory to write recorded output into.")
	queueSize := fs.Int("queue-size", 128, "Per-frame-source bounded queue capacity.")
	frameWidth := fs.Int("frame-width", 640, "Width in pixels of every registered frame source.")
	frameHeight := fs.Int("frame-height", 480, "Height in pixels of every registered frame source.")
	configFile := fs.String("c", "", "Configuration file.")
	configKey := fs.String("k", "", "Configuration key (required with -c).")
	debug := fs.Bool("debug", false, "Enable debug logging.")
	showHelp := fs.Bool("help", false, "Show this help message.")
	showVersion := fs.Bool("version", false, "Print version information.")

	if err := fs.Parse(args); err != nil {
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

	cfg := config.Default()
	cfg.OutputDir = *outputDir
	cfg.QueueSize = *queueSize
	cfg.Width = *frameWidth
	cfg.Height = *frameHeight
	if *configFile != "" {
		loaded, err := config.Load(*configFile, *configKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return cliutil.ExitFatal
		}
		cfg.OutputDir = loaded.OutputDir
		cfg.QueueSize = loaded.QueueSize
		cfg.Width = loaded.Width
		cfg.Height = loaded.Height
	}

	if len(frameSources) == 0 && len(positionSources) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one -frame-source or -position-source is required.")
		printUsage(fs)
		return cliutil.ExitUsage
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Error("failed to create output directory", "dir", cfg.OutputDir, "error", err)
		return cliutil.ExitFatal
	}

	// Every registered frame source is assumed to bind the same
	// dimensions and Gray8 format, matching oat-frameserver's own
	// hardcoded format choice; a recorder pulling from sources with
	// differing frame sizes needs per-source flags this binary doesn't
	// yet expose.
	frameBytes := cfg.Width * cfg.Height * int(payload.PixelFormatGray8.BytesPerPixel())

	rec := recorder.New(log)
	for _, addr := range frameSources {
		rec.AddFrameSource(addr, frameBytes, cfg.QueueSize, &recorder.NullEncoder{})
	}
	for _, addr := range positionSources {
		rec.AddPositionSource(addr)
	}

	log.Info("connecting to sources", "frame_sources", []string(frameSources), "position_sources", []string(positionSources))
	if err := rec.Connect(); err != nil {
		log.Error("connect failed", "error", err)
		return cliutil.ExitFatal
	}
	defer rec.Close()

	if len(positionSources) > 0 {
		logPath := filepath.Join(cfg.OutputDir, "positions.jsonl")
		if err := rec.OpenPositionLog(logPath); err != nil {
			log.Error("failed to open position log", "path", logPath, "error", err)
			return cliutil.ExitFatal
		}
	}
	rec.SetRecording(true)

	ctx, stop := sigctl.Context(log)
	defer stop()

	log.Info("recording started", "output_dir", cfg.OutputDir)
	if err := rec.Run(ctx); err != nil {
		log.Error("recording failed", "error", err)
		return cliutil.ExitFatal
	}

	log.Info("recording finished")
	return cliutil.ExitOK
}
