// Package config loads Conductor's tunables from a config file and the
// environment. The timing thresholds are deliberately configuration, not
// constants: the classification bands are calibrated behavior, not
// correctness invariants.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/conductorapp/conductor/session"
	"github.com/conductorapp/conductor/timing"
)

// Config is the full tunable surface.
type Config struct {
	Timing  TimingConfig
	Session SessionConfig
	Audio   AudioConfig
	Packs   PacksConfig
}

// TimingConfig tunes the status classification bands.
type TimingConfig struct {
	TriggerBandMS   int `env:"CONDUCTOR_TRIGGER_BAND_MS"`
	ImminentWindowS int `env:"CONDUCTOR_IMMINENT_WINDOW_S"`
	UpcomingWindowS int `env:"CONDUCTOR_UPCOMING_WINDOW_S"`
}

// SessionConfig tunes the tick loop.
type SessionConfig struct {
	TickIntervalMS int  `env:"CONDUCTOR_TICK_INTERVAL_MS"`
	ForegroundOnly bool `env:"CONDUCTOR_FOREGROUND_ONLY"`
}

// AudioConfig tunes playback and beep synthesis.
type AudioConfig struct {
	SampleRate int     `env:"CONDUCTOR_SAMPLE_RATE"`
	BeepVolume float64 `env:"CONDUCTOR_BEEP_VOLUME"`
	Disabled   bool    `env:"CONDUCTOR_NO_AUDIO"`
}

// PacksConfig locates installed resource packs.
type PacksConfig struct {
	Dir   string `env:"CONDUCTOR_PACKS_DIR"`
	Watch bool   `env:"CONDUCTOR_PACKS_WATCH"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Timing: TimingConfig{
			TriggerBandMS:   500,
			ImminentWindowS: 10,
			UpcomingWindowS: 60,
		},
		Session: SessionConfig{
			TickIntervalMS: 16,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			BeepVolume: 0.6,
		},
	}
}

// Load resolves the configuration: defaults, then the viper-loaded file,
// then CONDUCTOR_* environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if viper.IsSet("timing.trigger_band_ms") {
		cfg.Timing.TriggerBandMS = viper.GetInt("timing.trigger_band_ms")
	}
	if viper.IsSet("timing.imminent_window_s") {
		cfg.Timing.ImminentWindowS = viper.GetInt("timing.imminent_window_s")
	}
	if viper.IsSet("timing.upcoming_window_s") {
		cfg.Timing.UpcomingWindowS = viper.GetInt("timing.upcoming_window_s")
	}
	if viper.IsSet("session.tick_interval_ms") {
		cfg.Session.TickIntervalMS = viper.GetInt("session.tick_interval_ms")
	}
	if viper.IsSet("session.foreground_only") {
		cfg.Session.ForegroundOnly = viper.GetBool("session.foreground_only")
	}
	if viper.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = viper.GetInt("audio.sample_rate")
	}
	if viper.IsSet("audio.beep_volume") {
		cfg.Audio.BeepVolume = viper.GetFloat64("audio.beep_volume")
	}
	if viper.IsSet("audio.disabled") {
		cfg.Audio.Disabled = viper.GetBool("audio.disabled")
	}
	if viper.IsSet("packs.dir") {
		cfg.Packs.Dir = viper.GetString("packs.dir")
	}
	if viper.IsSet("packs.watch") {
		cfg.Packs.Watch = viper.GetBool("packs.watch")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Timing.TriggerBandMS <= 0 {
		return fmt.Errorf("timing.trigger_band_ms must be positive, got %d", c.Timing.TriggerBandMS)
	}
	if c.Timing.ImminentWindowS <= 0 {
		return fmt.Errorf("timing.imminent_window_s must be positive, got %d", c.Timing.ImminentWindowS)
	}
	if c.Timing.UpcomingWindowS <= 0 {
		return fmt.Errorf("timing.upcoming_window_s must be positive, got %d", c.Timing.UpcomingWindowS)
	}
	if c.Session.TickIntervalMS <= 0 {
		return fmt.Errorf("session.tick_interval_ms must be positive, got %d", c.Session.TickIntervalMS)
	}
	if c.Audio.SampleRate != 44100 && c.Audio.SampleRate != 48000 {
		return fmt.Errorf("audio.sample_rate must be 44100 or 48000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.BeepVolume <= 0 || c.Audio.BeepVolume > 1 {
		return fmt.Errorf("audio.beep_volume must be in (0, 1], got %v", c.Audio.BeepVolume)
	}
	return nil
}

// Thresholds converts the timing tunables for the engine.
func (c Config) Thresholds() timing.Thresholds {
	return timing.Thresholds{
		TriggerBand:    time.Duration(c.Timing.TriggerBandMS) * time.Millisecond,
		ImminentWindow: time.Duration(c.Timing.ImminentWindowS) * time.Second,
	}
}

// SessionOptions converts the tunables into session options.
func (c Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.TickInterval = time.Duration(c.Session.TickIntervalMS) * time.Millisecond
	opts.UpcomingWindow = time.Duration(c.Timing.UpcomingWindowS) * time.Second
	opts.Thresholds = c.Thresholds()
	opts.ForegroundOnly = c.Session.ForegroundOnly
	return opts
}
