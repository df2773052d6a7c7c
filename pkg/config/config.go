// Package config loads the panel configuration from YAML, .env files and
// PRINTPANEL_* environment variables.
package config

import (
	"time"

	"printpanel-go/pkg/history"
	"printpanel-go/pkg/jog"
	"printpanel-go/pkg/machine"
	"printpanel-go/pkg/panel"
)

// EnvPrefix prefixes environment overrides, e.g. PRINTPANEL_SERVER_ADDR.
const EnvPrefix = "PRINTPANEL"

// Connection modes.
const (
	ModeVirtual = "virtual"
	ModeSerial  = "serial"
)

// Config is the top-level configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`
	Printer    PrinterConfig    `mapstructure:"printer" yaml:"printer"`
	Panel      PanelConfig      `mapstructure:"panel" yaml:"panel"`
}

// ServerConfig configures the HTTP and websocket surface.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	StatusInterval time.Duration `mapstructure:"status_interval" yaml:"status_interval"`
}

// LogConfig configures logging. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Caller     bool   `mapstructure:"caller" yaml:"caller"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// ConnectionConfig selects the printer link.
type ConnectionConfig struct {
	Mode     string `mapstructure:"mode" yaml:"mode"`
	Device   string `mapstructure:"device" yaml:"device"`
	Baud     int    `mapstructure:"baud" yaml:"baud"`
	Firmware string `mapstructure:"firmware" yaml:"firmware"`
}

// PrinterConfig describes the machine geometry and motion limits.
type PrinterConfig struct {
	PrintAreaWidth  float64 `mapstructure:"print_area_width" yaml:"print_area_width"`
	PrintAreaDepth  float64 `mapstructure:"print_area_depth" yaml:"print_area_depth"`
	PrintAreaHeight float64 `mapstructure:"print_area_height" yaml:"print_area_height"`
	TravelFeedRate  float64 `mapstructure:"travel_feed_rate" yaml:"travel_feed_rate"`
	MaxZFeedRate    float64 `mapstructure:"max_z_feed_rate" yaml:"max_z_feed_rate"`
	HasHeatedBed    bool    `mapstructure:"has_heated_bed" yaml:"has_heated_bed"`
}

// PanelConfig tunes the operator panel.
type PanelConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	StatusDwell     time.Duration `mapstructure:"status_dwell" yaml:"status_dwell"`
	HistorySize     int           `mapstructure:"history_size" yaml:"history_size"`
	XYMoveDistances string        `mapstructure:"xy_move_distances" yaml:"xy_move_distances"`
	ZMoveDistances  string        `mapstructure:"z_move_distances" yaml:"z_move_distances"`
	NoPowerControl  bool          `mapstructure:"no_power_control" yaml:"no_power_control"`
}

// MarshalYAML writes durations as "250ms" rather than nanoseconds.
func (s ServerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Addr           string `yaml:"addr"`
		StatusInterval string `yaml:"status_interval"`
	}{s.Addr, s.StatusInterval.String()}, nil
}

// MarshalYAML writes durations as "30s" rather than nanoseconds.
func (p PanelConfig) MarshalYAML() (interface{}, error) {
	return struct {
		TickInterval    string `yaml:"tick_interval"`
		StatusDwell     string `yaml:"status_dwell"`
		HistorySize     int    `yaml:"history_size"`
		XYMoveDistances string `yaml:"xy_move_distances"`
		ZMoveDistances  string `yaml:"z_move_distances"`
		NoPowerControl  bool   `yaml:"no_power_control"`
	}{
		p.TickInterval.String(), p.StatusDwell.String(), p.HistorySize,
		p.XYMoveDistances, p.ZMoveDistances, p.NoPowerControl,
	}, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":7130",
			StatusInterval: 250 * time.Millisecond,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Connection: ConnectionConfig{
			Mode:     ModeVirtual,
			Device:   "/dev/ttyUSB0",
			Baud:     250000,
			Firmware: "marlin",
		},
		Printer: PrinterConfig{
			PrintAreaWidth:  200,
			PrintAreaDepth:  200,
			PrintAreaHeight: 100,
			TravelFeedRate:  4800,
			MaxZFeedRate:    100,
			HasHeatedBed:    true,
		},
		Panel: PanelConfig{
			TickInterval:    panel.DefaultTickInterval,
			StatusDwell:     30 * time.Second,
			HistorySize:     history.DefaultCapacity,
			XYMoveDistances: "0.1;1;10;50;100",
			ZMoveDistances:  "0.1;1;10;50;100",
		},
	}
}

// Profile converts the printer section into a motion profile.
func (c Config) Profile() machine.Profile {
	return machine.Profile{
		TravelFeedRate: c.Printer.TravelFeedRate,
		MaxZFeedRate:   c.Printer.MaxZFeedRate,
		Limits: [3]float64{
			c.Printer.PrintAreaWidth,
			c.Printer.PrintAreaDepth,
			c.Printer.PrintAreaHeight,
		},
		HasHeatedBed: c.Printer.HasHeatedBed,
	}
}

// Firmware returns the configured firmware flavour.
func (c Config) Firmware() machine.Firmware {
	return machine.ParseFirmware(c.Connection.Firmware)
}

// PanelSettings converts the panel section. Call Validate first; invalid
// preset lists are returned empty.
func (c Config) PanelSettings() panel.Config {
	xy, _ := jog.ParsePresets(c.Panel.XYMoveDistances)
	z, _ := jog.ParsePresets(c.Panel.ZMoveDistances)
	return panel.Config{
		TickInterval:   c.Panel.TickInterval,
		StatusDwell:    c.Panel.StatusDwell,
		HistorySize:    c.Panel.HistorySize,
		NoPowerControl: c.Panel.NoPowerControl,
		XYPresets:      xy,
		ZPresets:       z,
	}
}
