// Command oat-positionfilter reads positions from a SOURCE, applies a
// transform.Transform, and republishes them to a SINK, reexpressing
// original_source/src/positionfilter/main.cpp's TYPE SOURCE SINK shape:
// a swappable function value stands in for the kalman/homography/region
// filter class hierarchy this substrate doesn't carry.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/visiona/oatbus/config"
	"github.com/visiona/oatbus/endpoint"
	"github.com/visiona/oatbus/internal/cliutil"
	"github.com/visiona/oatbus/internal/sigctl"
	"github.com/visiona/oatbus/payload"
	"github.com/visiona/oatbus/transform"
)

const version = "oat-positionfilter v1.0.0"

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: oat-positionfilter [INFO]
   or: oat-positionfilter TYPE SOURCE SINK [OPTIONS]
Filter positions from SOURCE and publish filtered positions to SINK.

TYPE:
  identity: pass positions through unchanged.

SOURCE:
  Address of the shared-memory segment to read positions from.

SINK:
  Address of the shared-memory segment to publish filtered positions to.

OPTIONS:
`)
	fs.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	positional, rest := cliutil.SplitPositional(args, 3)

	fs := flag.NewFlagSet("oat-positionfilter", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
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
	if len(positional) < 3 {
		fmt.Fprintln(os.Stderr, "Error: TYPE, SOURCE and SINK must be specified.")
		printUsage(fs)
		return cliutil.ExitUsage
	}
	filterType, sourceAddr, sinkAddr := positional[0], positional[1], positional[2]

	var xform transform.Transform
	switch filterType {
	case "identity":
		xform = transform.Identity
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown TYPE %q (want identity)\n", filterType)
		return cliutil.ExitUsage
	}

	if *configFile != "" {
		if _, err := config.Load(*configFile, *configKey); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return cliutil.ExitFatal
		}
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	var source endpoint.Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(sourceAddr, 0); err != nil {
		log.Error("source touch failed", "address", sourceAddr, "error", err)
		return cliutil.ExitFatal
	}
	defer source.Close()
	if err := source.Connect(); err != nil {
		log.Error("source connect failed", "address", sourceAddr, "error", err)
		return cliutil.ExitFatal
	}

	var sink endpoint.Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(sinkAddr, 0); err != nil {
		log.Error("sink bind failed", "address", sinkAddr, "error", err)
		return cliutil.ExitFatal
	}
	defer sink.Close()

	ctx, stop := sigctl.Context(log)
	defer stop()

	log.Info("filtering positions", "source", sourceAddr, "sink", sinkAddr, "type", filterType)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return cliutil.ExitOK
		default:
		}

		if source.Wait() == endpoint.End {
			log.Info("source reached end of stream")
			sink.Close()
			return cliutil.ExitOK
		}

		in, err := source.Clone()
		source.Post()
		if err != nil {
			log.Error("clone failed", "error", err)
			return cliutil.ExitFatal
		}

		out := xform(in)
		dst, err := sink.Retrieve()
		if err != nil {
			log.Error("retrieve failed", "error", err)
			return cliutil.ExitFatal
		}
		*dst = out
		dst.Sample.PeriodSec = in.Sample.PeriodSec

		sink.Post(uuid.New())
		if sink.Wait() == endpoint.End {
			log.Info("sink reached end of stream")
			return cliutil.ExitOK
		}
	}
}
