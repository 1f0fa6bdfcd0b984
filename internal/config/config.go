// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Exchange defaults, shared with the exchange engine.
const (
	DefaultTimeout     = time.Second
	DefaultMaxAttempts = 3
)

// Config defines the global configuration structure
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	Registers string          `mapstructure:"registers"` // Path to a TOML register table
	Transport TransportConfig `mapstructure:"transport"`
	Emulator  EmulatorConfig  `mapstructure:"emulator"`
	Gateways  []GatewayConfig `mapstructure:"gateways"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path, "-" for stderr
}

// ProtocolConfig defines the host side of the register protocol
type ProtocolConfig struct {
	Address      int            `mapstructure:"address"`     // Our node address
	Destination  int            `mapstructure:"destination"` // Default device address
	Timeout      time.Duration  `mapstructure:"timeout"`     // Per-attempt response deadline
	MaxAttempts  int            `mapstructure:"max_attempts"`
	PollInterval time.Duration  `mapstructure:"poll_interval"`
	MaxPayload   int            `mapstructure:"max_payload"`
	Commands     CommandsConfig `mapstructure:"commands"`
	Aliases      []AliasConfig  `mapstructure:"aliases"`
}

// CommandsConfig overrides the command codes. NACK is fixed at 0x00.
type CommandsConfig struct {
	Ack       int `mapstructure:"ack"`
	Read      int `mapstructure:"read"`
	ReadReply int `mapstructure:"read_reply"`
	Write     int `mapstructure:"write"`
}

// AliasConfig maps a node address to the two header bytes a peer uses for it
type AliasConfig struct {
	Address int    `mapstructure:"address"`
	Wire    string `mapstructure:"wire"` // Two bytes in hex, e.g. "7e02"
}

// TransportConfig selects the link to the device
type TransportConfig struct {
	Type   string       `mapstructure:"type"`   // "serial", "tcp", "local"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "serial"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp"
	Local  LocalConfig  `mapstructure:"local"`  // Used if Type is "local"
}

// EmulatorConfig defines a device emulator served on upstream links
type EmulatorConfig struct {
	Address     int               `mapstructure:"address"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Upstreams   []UpstreamConfig  `mapstructure:"upstreams"`
}

// GatewayConfig defines a single gateway instance
type GatewayConfig struct {
	Name        string             `mapstructure:"name"`
	Upstreams   []UpstreamConfig   `mapstructure:"upstreams"`
	Downstreams []DownstreamConfig `mapstructure:"downstreams"`
}

// UpstreamConfig defines a host connecting to us
type UpstreamConfig struct {
	Type   string       `mapstructure:"type"`   // "tcp", "serial"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "serial"
}

// DownstreamConfig defines the device the gateway connects to
type DownstreamConfig struct {
	Name      string       `mapstructure:"name"`      // Optional name for logging
	Type      string       `mapstructure:"type"`      // "tcp", "serial", "local"
	Addresses string       `mapstructure:"addresses"` // Routing rules: "0x42", "1,2", "1-10"
	Tcp       TcpConfig    `mapstructure:"tcp"`
	Serial    SerialConfig `mapstructure:"serial"`
	Local     LocalConfig  `mapstructure:"local"`
}

// LocalConfig defines an in-process emulated device
type LocalConfig struct {
	Address     int               `mapstructure:"address"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// PersistenceConfig defines register storage settings
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap"
	Path string `mapstructure:"path"` // File path for "file/mmap" type
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string        `mapstructure:"address"` // e.g. "0.0.0.0:4001" or "192.168.1.100:4001"
	Timeout time.Duration `mapstructure:"timeout"` // Dial and write timeout
}

// SerialConfig defines serial line settings
type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	Parity      string        `mapstructure:"parity"`
	StopBits    int           `mapstructure:"stop_bits"`
	Timeout     time.Duration `mapstructure:"timeout"`      // Single read poll
	IdleTimeout time.Duration `mapstructure:"idle_timeout"` // Close the port after this long unused
}

// Option customizes Load.
type Option func(v *viper.Viper) error

// WithFlags binds command line flags to config keys. Set flags take
// precedence over the config file.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) Option {
	return func(v *viper.Viper) error {
		for name, key := range keys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
		return nil
	}
}

// Load loads configuration from file. Without an explicit file a missing
// config is not an error and the defaults apply.
func Load(configFile string, opts ...Option) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/lacbus/")
		v.AddConfigPath("$HOME/.lacbus")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LACBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.fixup(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "-")

	v.SetDefault("protocol.address", 0x11)
	v.SetDefault("protocol.destination", 0x42)
	v.SetDefault("protocol.timeout", DefaultTimeout)
	v.SetDefault("protocol.max_attempts", DefaultMaxAttempts)
	v.SetDefault("protocol.poll_interval", 50*time.Millisecond)
	v.SetDefault("protocol.max_payload", 1024)
	v.SetDefault("protocol.commands.ack", 0x01)
	v.SetDefault("protocol.commands.read", 0x04)
	v.SetDefault("protocol.commands.read_reply", 0x08)
	v.SetDefault("protocol.commands.write", 0x06)

	v.SetDefault("transport.type", "serial")
	v.SetDefault("transport.serial.device", "/dev/ttyUSB0")
	v.SetDefault("transport.serial.baud_rate", 115200)
	v.SetDefault("transport.local.address", 0x42)

	v.SetDefault("emulator.address", 0x42)
	v.SetDefault("emulator.persistence.type", "memory")
}

// Validate / Fixups
func (c *Config) fixup() error {
	p := &c.Protocol
	for name, b := range map[string]int{
		"protocol.address":             p.Address,
		"protocol.destination":         p.Destination,
		"protocol.commands.ack":        p.Commands.Ack,
		"protocol.commands.read":       p.Commands.Read,
		"protocol.commands.read_reply": p.Commands.ReadReply,
		"protocol.commands.write":      p.Commands.Write,
		"transport.local.address":      c.Transport.Local.Address,
		"emulator.address":             c.Emulator.Address,
	} {
		if b < 0 || b > 0xFF {
			return fmt.Errorf("%s: %#x is not a byte", name, b)
		}
	}
	for name, code := range map[string]int{
		"ack":        p.Commands.Ack,
		"read":       p.Commands.Read,
		"read_reply": p.Commands.ReadReply,
		"write":      p.Commands.Write,
	} {
		if code == 0 {
			return fmt.Errorf("protocol.commands.%s: 0x00 is reserved for NACK", name)
		}
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	for _, a := range p.Aliases {
		if _, _, err := a.Bytes(); err != nil {
			return err
		}
	}

	c.Transport.Type = strings.ToLower(c.Transport.Type)
	fixupSerial(&c.Transport.Serial)
	fixupTcp(&c.Transport.Tcp)

	for i := range c.Emulator.Upstreams {
		fixupUpstream(&c.Emulator.Upstreams[i])
	}

	for i := range c.Gateways {
		gw := &c.Gateways[i]

		for j := range gw.Downstreams {
			ds := &gw.Downstreams[j]
			ds.Type = strings.ToLower(ds.Type)
			fixupSerial(&ds.Serial)
			fixupTcp(&ds.Tcp)
		}

		for j := range gw.Upstreams {
			fixupUpstream(&gw.Upstreams[j])
		}
	}
	return nil
}

// Bytes decodes the alias into its canonical address and wire sequence.
func (a AliasConfig) Bytes() (byte, [2]byte, error) {
	var wire [2]byte
	if a.Address < 0 || a.Address > 0xFF {
		return 0, wire, fmt.Errorf("protocol.aliases: %#x is not a byte", a.Address)
	}
	b, err := hex.DecodeString(strings.ReplaceAll(a.Wire, " ", ""))
	if err != nil || len(b) != 2 {
		return 0, wire, fmt.Errorf("protocol.aliases: wire %q must be two hex bytes", a.Wire)
	}
	copy(wire[:], b)
	return byte(a.Address), wire, nil
}

func fixupUpstream(u *UpstreamConfig) {
	u.Type = strings.ToLower(u.Type)
	fixupSerial(&u.Serial)
	fixupTcp(&u.Tcp)
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Parity == "" {
		s.Parity = "N"
	}
	if s.BaudRate == 0 {
		s.BaudRate = 115200
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
	if s.Timeout == 0 {
		s.Timeout = 20 * time.Millisecond
	}
}

func fixupTcp(t *TcpConfig) {
	if t.Timeout == 0 {
		t.Timeout = 5 * time.Second
	}
}
