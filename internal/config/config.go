// Package config loads YAML-driven defaults for the Proxy server, the
// Registrar server, and Actor instances. Grounded on the teacher's
// internal/config/config.go: read-file-then-unmarshal-then-default,
// wrapped errors, same yaml.v3 dependency.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JeffersonLab/dift-sub001/public/actor"
)

// Default ports (spec.md §6).
const (
	DefaultProxyPubPort     = 7771
	DefaultProxySubPort     = 7772
	DefaultProxyControlPort = 7773
	DefaultRegistrarPort    = 8888
)

// Default values for the operational knobs SPEC_FULL.md §4.11 requires
// to be configurable: the registrar call timeout, the subscription
// poll interval, and the compression threshold.
const (
	DefaultRegistrarCallTimeoutMillis = 3000
	DefaultPollIntervalMillis         = 100
	DefaultCompressThresholdBytes     = 8192
)

// Config is the top-level document a cmd/proxy or cmd/registrar
// process, or an embedding application, loads at startup.
type Config struct {
	AppName string `yaml:"app_name"`
	Debug   bool   `yaml:"debug"`

	Proxy     ProxyConfig     `yaml:"proxy"`
	Registrar RegistrarConfig `yaml:"registrar"`
	Actor     ActorConfig     `yaml:"actor"`
}

// ProxyConfig holds the Proxy server's listen settings.
type ProxyConfig struct {
	Host        string `yaml:"host"`
	PubPort     int    `yaml:"pub_port"`
	SubPort     int    `yaml:"sub_port"`
	ControlPort int    `yaml:"control_port"`
	MaxSockets  int    `yaml:"max_sockets"`
	// IOThreads is advisory (spec.md §4.3): this server's transport is
	// plain TCP with no thread-pool knob to set, but the value is still
	// accepted and threaded into its Context for parity with actor.Context.
	IOThreads int `yaml:"io_threads"`
}

// RegistrarConfig holds the Registrar server's listen settings.
type RegistrarConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxSockets int    `yaml:"max_sockets"`
	IOThreads  int    `yaml:"io_threads"`
}

// ActorConfig holds the defaults a newly constructed Actor uses when
// the caller doesn't override them.
type ActorConfig struct {
	Name              string `yaml:"name"`
	ProxyHost         string `yaml:"proxy_host"`
	ProxyPort         int    `yaml:"proxy_port"`
	RegistrarHost     string `yaml:"registrar_host"`
	RegistrarPort     int    `yaml:"registrar_port"`
	MaxSockets        int    `yaml:"max_sockets"`
	IOThreads         int    `yaml:"io_threads"`
	SyncPublishMillis int    `yaml:"sync_publish_timeout_ms"`

	// RegistrarCallTimeoutMillis bounds a single RegDriver request/reply
	// round trip (spec.md §4.5).
	RegistrarCallTimeoutMillis int `yaml:"registrar_call_timeout_ms"`
	// PollIntervalMillis bounds how long a Subscription's worker blocks
	// in a single poll (spec.md §4.7).
	PollIntervalMillis int `yaml:"poll_interval_ms"`
	// CompressThresholdBytes is the payload size at or above which a driver
	// opportunistically S2-compresses a frame (SPEC_FULL.md §4.2).
	CompressThresholdBytes int `yaml:"compress_threshold_bytes"`
}

// Tunables converts the millisecond/byte fields loaded from YAML into
// the actor.Tunables value NewActor and NewConnectionPool accept.
func (c ActorConfig) Tunables() actor.Tunables {
	return actor.Tunables{
		RegDriverTimeout:  time.Duration(c.RegistrarCallTimeoutMillis) * time.Millisecond,
		PollInterval:      time.Duration(c.PollIntervalMillis) * time.Millisecond,
		CompressThreshold: c.CompressThresholdBytes,
	}
}

// Load reads filename, parses it as YAML, and fills in every unset
// field with its documented default.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return &cfg, nil
}

// Default returns a Config populated entirely with documented defaults,
// used when no config file is supplied (spec.md §9's "zero-config
// startup" expectation for a local development run).
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Proxy.Host == "" {
		cfg.Proxy.Host = "localhost"
	}
	if cfg.Proxy.PubPort == 0 {
		cfg.Proxy.PubPort = DefaultProxyPubPort
	}
	if cfg.Proxy.SubPort == 0 {
		cfg.Proxy.SubPort = DefaultProxySubPort
	}
	if cfg.Proxy.ControlPort == 0 {
		cfg.Proxy.ControlPort = DefaultProxyControlPort
	}
	if cfg.Proxy.MaxSockets == 0 {
		cfg.Proxy.MaxSockets = 1024
	}

	if cfg.Registrar.Host == "" {
		cfg.Registrar.Host = "localhost"
	}
	if cfg.Registrar.Port == 0 {
		cfg.Registrar.Port = DefaultRegistrarPort
	}
	if cfg.Registrar.MaxSockets == 0 {
		cfg.Registrar.MaxSockets = 1024
	}

	if cfg.Actor.ProxyHost == "" {
		cfg.Actor.ProxyHost = cfg.Proxy.Host
	}
	if cfg.Actor.ProxyPort == 0 {
		cfg.Actor.ProxyPort = cfg.Proxy.PubPort
	}
	if cfg.Actor.RegistrarHost == "" {
		cfg.Actor.RegistrarHost = cfg.Registrar.Host
	}
	if cfg.Actor.RegistrarPort == 0 {
		cfg.Actor.RegistrarPort = cfg.Registrar.Port
	}
	if cfg.Actor.MaxSockets == 0 {
		cfg.Actor.MaxSockets = 256
	}
	if cfg.Actor.SyncPublishMillis == 0 {
		cfg.Actor.SyncPublishMillis = 2000
	}
	if cfg.Actor.RegistrarCallTimeoutMillis == 0 {
		cfg.Actor.RegistrarCallTimeoutMillis = DefaultRegistrarCallTimeoutMillis
	}
	if cfg.Actor.PollIntervalMillis == 0 {
		cfg.Actor.PollIntervalMillis = DefaultPollIntervalMillis
	}
	if cfg.Actor.CompressThresholdBytes == 0 {
		cfg.Actor.CompressThresholdBytes = DefaultCompressThresholdBytes
	}
}

func validate(cfg *Config) error {
	if cfg.Proxy.PubPort == cfg.Proxy.SubPort || cfg.Proxy.PubPort == cfg.Proxy.ControlPort || cfg.Proxy.SubPort == cfg.Proxy.ControlPort {
		return fmt.Errorf("proxy pub_port, sub_port, and control_port must be distinct")
	}
	if cfg.Proxy.MaxSockets < 0 || cfg.Registrar.MaxSockets < 0 || cfg.Actor.MaxSockets < 0 {
		return fmt.Errorf("max_sockets must not be negative")
	}
	if cfg.Actor.RegistrarCallTimeoutMillis < 0 || cfg.Actor.PollIntervalMillis < 0 || cfg.Actor.CompressThresholdBytes < 0 {
		return fmt.Errorf("registrar_call_timeout_ms, poll_interval_ms, and compress_threshold_bytes must not be negative")
	}
	return nil
}
