// Command oat-positiongen publishes a simulated 2D position to a
// shared-memory SINK, reexpressing
// original_source/src/positiongenerator/RandomAccel2D.{h,cpp} as the
// one concrete generator this substrate ships: no generator plugin
// hierarchy, just the random-walk kind the original defaulted demos to.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/visiona/oatbus/config"
	"github.com/visiona/oatbus/endpoint"
	"github.com/visiona/oatbus/internal/cliutil"
	"github.com/visiona/oatbus/internal/sigctl"
	"github.com/visiona/oatbus/payload"
)

const version = "oat-positiongen v1.0.0"

// room bounds a randomAccel2D generator's simulated position; a
// component hitting an edge has its position clamped and that
// component of velocity zeroed, the discrete analogue of
// RandomAccel2D's room_ rect.
type room struct {
	x, y, w, h float64
}

// randomAccel2D simulates smooth, randomly-accelerated 2D motion: each
// step perturbs velocity by a Gaussian sample and integrates position
// forward by dt, matching RandomAccel2D::simulateMotion's constant-
// velocity state-transition model without the cv::Matx machinery.
type randomAccel2D struct {
	x, y, vx, vy float64
	sigmaAccel   float64
	dt           float64
	room         *room
	rng          *rand.Rand
}

func (g *randomAccel2D) step() (x, y, vx, vy float64) {
	ax := g.rng.NormFloat64() * g.sigmaAccel
	ay := g.rng.NormFloat64() * g.sigmaAccel

	g.vx += g.dt * ax
	g.vy += g.dt * ay
	g.x += g.dt * g.vx
	g.y += g.dt * g.vy

	if g.room != nil {
		if g.x < g.room.x {
			g.x, g.vx = g.room.x, 0
		} else if g.x > g.room.x+g.room.w {
			g.x, g.vx = g.room.x+g.room.w, 0
		}
		if g.y < g.room.y {
			g.y, g.vy = g.room.y, 0
		} else if g.y > g.room.y+g.room.h {
			g.y, g.vy = g.room.y+g.room.h, 0
		}
	}

	return g.x, g.y, g.vx, g.vy
}

func parseRoom(s string) (*room, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("room must be \"x,y,width,height\", got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("room: %w", err)
		}
		vals[i] = v
	}
	return &room{x: vals[0], y: vals[1], w: vals[2], h: vals[3]}, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: oat-positiongen [INFO]
   or: oat-positiongen TYPE SINK [OPTIONS]
Publish a simulated 2D position stream to a shared-memory SINK.

TYPE:
  random2d: Gaussian random-acceleration walk.

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

	fs := flag.NewFlagSet("oat-positiongen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	rateHz := fs.Float64("rate", 30, "Simulated samples per second: sets the integration step and advertised sample period; publishing is not throttled to it.")
	sigmaAccel := fs.Float64("sigma-accel", 100, "Standard deviation of random accelerations.")
	roomStr := fs.String("room", "", "Bounding room as \"x,y,width,height\" (unbounded if empty).")
	numSamples := fs.Uint64("num-samples", 0, "Stop after this many samples (0 = unlimited).")
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
	genType, sinkAddr := positional[0], positional[1]
	if genType != "random2d" {
		fmt.Fprintf(os.Stderr, "Error: unknown TYPE %q (want random2d)\n", genType)
		return cliutil.ExitUsage
	}

	cfg := config.Default()
	cfg.Address = sinkAddr
	cfg.RateHz = *rateHz
	if *configFile != "" {
		loaded, err := config.Load(*configFile, *configKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return cliutil.ExitFatal
		}
		cfg = *loaded
		cfg.Address = sinkAddr
	}

	rm, err := parseRoom(*roomStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cliutil.ExitUsage
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	var sink endpoint.Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(cfg.Address, 0); err != nil {
		log.Error("sink bind failed", "address", cfg.Address, "error", err)
		return cliutil.ExitFatal
	}
	defer sink.Close()

	ctx, stop := sigctl.Context(log)
	defer stop()

	gen := &randomAccel2D{sigmaAccel: *sigmaAccel, dt: 1 / cfg.RateHz, room: rm, rng: rand.New(rand.NewSource(1))}
	period := 1 / cfg.RateHz

	log.Info("publishing positions", "address", cfg.Address, "rate_hz", cfg.RateHz)

	var n uint64
	for *numSamples == 0 || n < *numSamples {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return cliutil.ExitOK
		default:
		}

		x, y, vx, vy := gen.step()

		pos, err := sink.Retrieve()
		if err != nil {
			log.Error("retrieve failed", "error", err)
			return cliutil.ExitFatal
		}
		pos.SetLabel("sim")
		pos.SetPosition(x, y)
		pos.SetVelocity(vx, vy)
		pos.Sample.PeriodSec = period

		sink.Post(uuid.New())
		if sink.Wait() == endpoint.End {
			log.Info("sink reached end of stream")
			return cliutil.ExitOK
		}
		n++
	}
	return cliutil.ExitOK
}
