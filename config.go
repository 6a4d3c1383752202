/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pixil98/go-errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/simon/internal/bus"
	"github.com/Seednode/simon/internal/device"
	"github.com/Seednode/simon/internal/sequence"
)

var deviceKinds = []string{"simulated", "led", "remote"}

type Config struct {
	bind           string
	defaultRoom    string
	device         string
	difficulty     string
	displayTimeout time.Duration
	ledCount       int
	ledZoneSize    int
	maxLevel       int
	natsEmbedded   bool
	natsHost       string
	natsPort       int
	natsSubject    string
	natsURL        string
	port           int
	prefix         string
	profile        bool
	responder      bool
	roomTimeout    time.Duration
	roundDelay     time.Duration
	seed           uint64
	startDelay     time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	visitorTimeout time.Duration
}

func (c *Config) validate() error {
	el := errors.NewErrorList()

	if (c.tlsCert == "") != (c.tlsKey == "") {
		el.Add(fmt.Errorf("both --tls-cert and --tls-key must be provided together"))
	}
	if c.port < 1 || c.port > 65535 {
		el.Add(fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port))
	}

	if _, err := sequence.LookupProfile(c.difficulty); err != nil {
		el.Add(err)
	}
	if c.maxLevel < 0 {
		el.Add(fmt.Errorf("--max-level must not be negative: %d", c.maxLevel))
	}
	if c.roomTimeout < 0 {
		el.Add(fmt.Errorf("--room-timeout must not be negative"))
	}
	if c.visitorTimeout < 0 {
		el.Add(fmt.Errorf("--visitor-timeout must not be negative"))
	}
	if c.startDelay < 0 || c.roundDelay < 0 {
		el.Add(fmt.Errorf("--start-delay and --round-delay must not be negative"))
	}

	if !slices.Contains(deviceKinds, c.device) {
		el.Add(fmt.Errorf("unknown --device %q (want one of %s)", c.device, strings.Join(deviceKinds, ", ")))
	}
	if c.device == "led" || c.responder {
		el.Add(device.DefaultLayout(c.ledZoneSize).Validate(c.ledCount))
	}
	if c.device == "remote" && !c.usesBus() {
		el.Add(fmt.Errorf("--device=remote requires --nats-url or --nats-embedded"))
	}
	if c.responder && !c.usesBus() {
		el.Add(fmt.Errorf("--responder requires --nats-url or --nats-embedded"))
	}
	if c.natsEmbedded && (c.natsPort < -1 || c.natsPort > 65535) {
		el.Add(fmt.Errorf("invalid --nats-port: %d", c.natsPort))
	}
	if c.natsSubject == "" {
		el.Add(fmt.Errorf("--nats-subject must not be empty"))
	}

	return el.Err()
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// gameProfile is the difficulty table in effect, with --max-level applied.
func (c *Config) gameProfile() sequence.Profile {
	p, err := sequence.LookupProfile(c.difficulty)
	if err != nil {
		p = sequence.Exhibition
	}
	if c.maxLevel > 0 {
		p.MaxLevel = c.maxLevel
	}

	return p
}

func (c *Config) generator() *sequence.Generator {
	if c.seed != 0 {
		return sequence.NewSeededGenerator(c.seed)
	}

	return sequence.NewGenerator()
}

func (c *Config) usesBus() bool {
	return c.natsEmbedded || c.natsURL != ""
}

func (c *Config) buildBusServer() (*bus.Server, error) {
	opts := []bus.ServerOpt{
		bus.WithStartTimeout(timeout),
	}
	if c.natsHost != "" {
		opts = append(opts, bus.WithHost(c.natsHost))
	}
	if c.natsPort != 0 {
		opts = append(opts, bus.WithPort(c.natsPort))
	}

	return bus.NewServer(opts...)
}

func (c *Config) buildLED() (*device.LED, error) {
	return device.NewLED(device.NewMemoryStrip(c.ledCount), device.DefaultLayout(c.ledZoneSize), logger(c))
}

// buildDevice returns the fixture every room plays on, serialized so only
// one sequence is shown at a time.
func (c *Config) buildDevice(conn *nats.Conn) (device.Device, error) {
	var d device.Device

	switch c.device {
	case "led":
		led, err := c.buildLED()
		if err != nil {
			return nil, fmt.Errorf("building led device: %w", err)
		}
		d = led
	case "remote":
		if conn == nil {
			return nil, fmt.Errorf("remote device needs a bus connection")
		}
		d = device.NewRemote(conn, c.natsSubject, c.displayTimeout)
	default:
		d = device.NewSimulated(logger(c))
	}

	return device.NewSerialized(d), nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SIMON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "simon",
		Short:         "A multiplayer color sequence memory game for the light dome exhibit.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SIMON_BIND)")
	fs.StringVar(&cfg.defaultRoom, "default-room", "default_room", "room joined when a client names none (env: SIMON_DEFAULT_ROOM)")
	fs.StringVar(&cfg.device, "device", "simulated", "light fixture driver: simulated, led, or remote (env: SIMON_DEVICE)")
	fs.StringVar(&cfg.difficulty, "difficulty", "exhibition", "difficulty profile: exhibition or classic (env: SIMON_DIFFICULTY)")
	fs.DurationVar(&cfg.displayTimeout, "display-timeout", 5*time.Second, "extra time allowed for a remote fixture to answer (env: SIMON_DISPLAY_TIMEOUT)")
	fs.IntVar(&cfg.ledCount, "led-count", 120, "number of pixels on the led strip (env: SIMON_LED_COUNT)")
	fs.IntVar(&cfg.ledZoneSize, "led-zone-size", 30, "pixels per color zone (env: SIMON_LED_ZONE_SIZE)")
	fs.IntVar(&cfg.maxLevel, "max-level", 0, "last level of a multiplayer game, 0 for the profile default (env: SIMON_MAX_LEVEL)")
	fs.BoolVar(&cfg.natsEmbedded, "nats-embedded", false, "run an embedded nats server (env: SIMON_NATS_EMBEDDED)")
	fs.StringVar(&cfg.natsHost, "nats-host", "", "address the embedded nats server binds to (env: SIMON_NATS_HOST)")
	fs.IntVar(&cfg.natsPort, "nats-port", 0, "port for the embedded nats server, -1 for random (env: SIMON_NATS_PORT)")
	fs.StringVar(&cfg.natsSubject, "nats-subject", "simon", "subject prefix for game events and display requests (env: SIMON_NATS_SUBJECT)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "url of an external nats server (env: SIMON_NATS_URL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SIMON_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SIMON_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SIMON_PROFILE)")
	fs.BoolVar(&cfg.responder, "responder", false, "answer remote display requests with the local led strip (env: SIMON_RESPONDER)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time before idle rooms are closed, 0 to disable (env: SIMON_ROOM_TIMEOUT)")
	fs.DurationVar(&cfg.roundDelay, "round-delay", time.Second, "pause before each new level is shown (env: SIMON_ROUND_DELAY)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "seed for sequence generation, 0 for random (env: SIMON_SEED)")
	fs.DurationVar(&cfg.startDelay, "start-delay", time.Second, "pause before the first level is shown (env: SIMON_START_DELAY)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SIMON_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SIMON_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SIMON_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SIMON_VERSION)")
	fs.DurationVar(&cfg.visitorTimeout, "visitor-timeout", 60*time.Minute, "time before idle single-player visitors are forgotten, 0 to disable (env: SIMON_VISITOR_TIMEOUT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("simon v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
