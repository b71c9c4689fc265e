// Command oat-positionsocket republishes a position SOURCE to an MQTT
// broker, reexpressing original_source/src/positionsocket/PositionPublisher.cpp's
// ZMQ_PUB socket as an MQTT publish per sample: MQTT instead of the
// original's ZeroMQ, matching the broker this pack's domain stack
// actually brings — github.com/eclipse/paho.mqtt.golang, wired the way
// References/orion-prototipe/internal/emitter/mqtt.go does.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/visiona/oatbus/config"
	"github.com/visiona/oatbus/endpoint"
	"github.com/visiona/oatbus/internal/cliutil"
	"github.com/visiona/oatbus/internal/sigctl"
	"github.com/visiona/oatbus/payload"
)

const version = "oat-positionsocket v1.0.0"

// wireSample is the JSON document published to MQTT for each position,
// the socket's own wire schema, independent of the in-segment layout.
type wireSample struct {
	Label       string  `json:"label"`
	WriteNumber uint64  `json:"write_number"`
	TimestampNs int64   `json:"timestamp_ns"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	VX          float64 `json:"vx,omitempty"`
	VY          float64 `json:"vy,omitempty"`
	Heading     float64 `json:"heading,omitempty"`
}

func toWireSample(p payload.Position2D) wireSample {
	w := wireSample{
		Label:       p.GetLabel(),
		WriteNumber: p.Sample.WriteNumber,
		TimestampNs: p.Sample.TimestampNs,
	}
	if p.HasPosition() {
		w.X, w.Y = p.Position.X, p.Position.Y
	}
	if p.HasVelocity() {
		w.VX, w.VY = p.Velocity.X, p.Velocity.Y
	}
	if p.HasHeading() {
		w.Heading = p.Heading
	}
	return w
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: oat-positionsocket [INFO]
   or: oat-positionsocket TYPE SOURCE [OPTIONS]
Publish positions from SOURCE to an MQTT broker.

TYPE:
  mqtt: publish via MQTT (the only TYPE this binary supports).

SOURCE:
  Address of the shared-memory segment to read positions from.

OPTIONS:
`)
	fs.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	positional, rest := cliutil.SplitPositional(args, 2)

	fs := flag.NewFlagSet("oat-positionsocket", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	broker := fs.String("broker", "tcp://localhost:1883", "MQTT broker URL.")
	topic := fs.String("topic", "oatbus/positions", "MQTT topic to publish to.")
	qos := fs.Int("qos", 0, "MQTT QoS level (0, 1, or 2).")
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
		fmt.Fprintln(os.Stderr, "Error: TYPE and SOURCE must be specified.")
		printUsage(fs)
		return cliutil.ExitUsage
	}
	socketType, sourceAddr := positional[0], positional[1]
	if socketType != "mqtt" {
		fmt.Fprintf(os.Stderr, "Error: unknown TYPE %q (want mqtt)\n", socketType)
		return cliutil.ExitUsage
	}

	cfg := config.Default()
	cfg.Address = sourceAddr
	cfg.Broker = *broker
	cfg.Topic = *topic
	if *configFile != "" {
		loaded, err := config.Load(*configFile, *configKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return cliutil.ExitFatal
		}
		cfg = *loaded
		cfg.Address = sourceAddr
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("oat-positionsocket-" + sourceAddr)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", cfg.Broker)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		log.Error("mqtt connect timeout", "broker", cfg.Broker)
		return cliutil.ExitFatal
	}
	if err := token.Error(); err != nil {
		log.Error("mqtt connect failed", "broker", cfg.Broker, "error", err)
		return cliutil.ExitFatal
	}
	defer client.Disconnect(250)

	var source endpoint.Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(cfg.Address, 0); err != nil {
		log.Error("source touch failed", "address", cfg.Address, "error", err)
		return cliutil.ExitFatal
	}
	defer source.Close()
	if err := source.Connect(); err != nil {
		log.Error("source connect failed", "address", cfg.Address, "error", err)
		return cliutil.ExitFatal
	}

	ctx, stop := sigctl.Context(log)
	defer stop()

	log.Info("publishing positions to mqtt", "source", cfg.Address, "broker", cfg.Broker, "topic", cfg.Topic)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return cliutil.ExitOK
		default:
		}

		if source.Wait() == endpoint.End {
			log.Info("source reached end of stream")
			return cliutil.ExitOK
		}

		pos, err := source.Clone()
		source.Post()
		if err != nil {
			log.Error("clone failed", "error", err)
			continue
		}

		body, err := json.Marshal(toWireSample(pos))
		if err != nil {
			log.Error("marshal failed", "error", err)
			continue
		}

		pubToken := client.Publish(cfg.Topic, byte(*qos), false, body)
		if !pubToken.WaitTimeout(2 * time.Second) {
			log.Warn("publish timeout", "topic", cfg.Topic)
			continue
		}
		if err := pubToken.Error(); err != nil {
			log.Warn("publish failed", "topic", cfg.Topic, "error", err)
		}
	}
}
