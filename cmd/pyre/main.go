package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/emberfield/pyre/internal/audio"
	"github.com/emberfield/pyre/internal/config"
	"github.com/emberfield/pyre/internal/engine"
	"github.com/emberfield/pyre/internal/fire"
	"github.com/emberfield/pyre/internal/led"
	"github.com/emberfield/pyre/internal/ws"
)

var (
	configPath = "pyre.yaml"
	verbose    = false
	seed       = int64(0)
	simOnly    = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "path to config YAML")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "debug logging")
	pflag.Int64Var(&seed, "seed", seed, "simulation seed (0 = time-based)")
	pflag.BoolVar(&simOnly, "sim-only", simOnly, "force simulation (no hardware output)")
}

func main() {
	pflag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := config.Default()
	if c, err := config.Load(configPath); err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("config load failed; running on defaults")
	} else {
		cfg = c
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	env := &audio.Envelope{}
	gen := fire.New(env)
	if err := gen.Begin(cfg.GeneratorConfig(seed)); err != nil {
		log.Fatal().Err(err).Msg("generator init failed")
	}

	drv := openDriver(cfg)
	defer drv.Close()

	samples := audio.NewQueue(cfg.Audio.Queue)
	startAudio(cfg, samples)

	loop := engine.New(gen, env, drv, led.NewLUT(cfg.Brightness, cfg.Gamma), engine.Options{
		FPS:     cfg.FPS,
		Logger:  log.Logger,
		Samples: samples,
	})

	console := ws.NewState(loop, log.Logger)
	loop.SetOnFrame(console.OnFrame)

	mux := http.NewServeMux()
	console.Routes(mux)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("debug console listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	log.Info().
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Str("topology", cfg.Topology).
		Str("driver", cfg.Driver).
		Int64("seed", seed).
		Msg("pyre starting")

	err := loop.Run(ctx)
	if err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("frame loop stopped")
	}
	log.Info().Msg("shutting down")
	_ = srv.Close()
}

// openDriver picks the output sink from config, falling back to the
// simulator when hardware is missing.
func openDriver(cfg *config.Config) led.Driver {
	selected := cfg.Driver
	if simOnly {
		selected = "sim"
	}
	count := cfg.Width * cfg.Height

	switch selected {
	case "spi":
		drv, err := led.NewNRZ(count)
		if err != nil {
			log.Warn().Err(err).Msg("SPI init failed; falling back to sim")
			return led.NewSim()
		}
		return drv
	case "serial":
		drv, err := led.NewSerial(cfg.Serial.Dev, cfg.Serial.Baud, count)
		if err != nil {
			log.Warn().Err(err).Str("dev", cfg.Serial.Dev).Msg("serial init failed; falling back to sim")
			return led.NewSim()
		}
		return drv
	default:
		return led.NewSim()
	}
}

// startAudio wires the configured audio backend into the sample queue.
// "stdin" reads one analysis window per line (whitespace-separated bin
// magnitudes, e.g. piped from a spectrum analyzer); anything else leaves
// the queue silent and the envelope coasts.
func startAudio(cfg *config.Config, q *audio.Queue) {
	if cfg.Audio.Backend != "stdin" {
		if cfg.Audio.Backend != "" && cfg.Audio.Backend != "none" {
			log.Warn().Str("backend", cfg.Audio.Backend).Msg("unknown audio backend; running silent")
		}
		return
	}
	src := audio.NewBinSource(cfg.Audio.Bins, cfg.Audio.Gain, q)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			bins := make([]float64, 0, len(fields))
			for _, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					bins = nil
					break
				}
				bins = append(bins, v)
			}
			if bins == nil {
				continue
			}
			_ = src.Write([][]float64{bins}, 1)
		}
		log.Info().Msg("audio input closed; envelope will coast")
	}()
}
