// Package config loads the daemon configuration file (YAML) and applies
// defaults. Flags on the command line override individual fields after
// loading.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	// CodesFile is the PIN code table source.
	CodesFile string `yaml:"codes_file"`

	// Broker is the MQTT broker address; ClientID the MQTT client id.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`

	// InterDigitTimeoutMs and EntryTimeoutMs are the two entry deadlines,
	// both bounded to [1000, 60000].
	InterDigitTimeoutMs int `yaml:"inter_digit_timeout_ms"`
	EntryTimeoutMs      int `yaml:"entry_timeout_ms"`

	// TickMs is the timeout monitor cadence.
	TickMs int `yaml:"tick_ms"`

	// HeartbeatMs is the system heartbeat interval (0 disables).
	HeartbeatMs int `yaml:"heartbeat_ms"`

	Audio   AudioConfig   `yaml:"audio"`
	Relays  RelayConfig   `yaml:"relays"`
	Journal JournalConfig `yaml:"journal"`

	// HTTPAddr is the status server address (empty disables).
	HTTPAddr string `yaml:"http_addr"`
}

// AudioConfig describes the sample source and the decoder collaborator.
type AudioConfig struct {
	// Pipe is a named pipe delivering S16LE mono PCM. Empty means stdin.
	Pipe string `yaml:"pipe"`

	// ChunkSamples is the per-read sample count.
	ChunkSamples int `yaml:"chunk_samples"`

	// Decoder is the external tone-decoder command line.
	Decoder string `yaml:"decoder"`

	// PassThrough forwards input audio to stdout unchanged. When false,
	// silence of equal length is emitted instead.
	PassThrough bool `yaml:"pass_through"`
}

// RelayConfig maps code table labels to GPIO output pins.
type RelayConfig struct {
	// PulseMs is how long a pulsed line stays active.
	PulseMs int `yaml:"pulse_ms"`

	// Pins maps label -> BCM pin number. Empty disables relays.
	Pins map[string]int `yaml:"pins"`
}

// JournalConfig configures the decision audit journal.
type JournalConfig struct {
	// Path is the SQLite database file. Empty disables the journal.
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CodesFile:           "codes.pin",
		Broker:              "tcp://127.0.0.1:1883",
		ClientID:            "dtmf-gate",
		InterDigitTimeoutMs: 3000,
		EntryTimeoutMs:      10000,
		TickMs:              100,
		HeartbeatMs:         0,
		Audio: AudioConfig{
			ChunkSamples: 160,
			Decoder:      "multimon-ng -q -a DTMF -t raw -",
		},
		Relays: RelayConfig{
			PulseMs: 500,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing path ("")
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
