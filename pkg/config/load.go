// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/jog"
	"printpanel-go/pkg/log"
)

// DefaultPath returns the standard config location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".printpanel", "config.yaml"), nil
}

// LoadEnvFile loads KEY=value pairs from path into the environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			log.GetLogger("config").WithField("path", path).Debug("no env file")
			return nil
		}
		return errors.ConfigLoadError(path, err)
	}
	return nil
}

// Load reads path on top of the defaults and applies PRINTPANEL_*
// overrides. An empty path reads only defaults and environment. A path
// that does not exist is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !os.IsNotExist(err) && !stderrors.As(err, &notFound) {
				return Config{}, errors.ConfigLoadError(path, err)
			}
			log.GetLogger("config").WithField("path", path).Info("config file not found, using defaults")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.ConfigLoadError(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.status_interval", cfg.Server.StatusInterval)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.caller", cfg.Log.Caller)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("connection.mode", cfg.Connection.Mode)
	v.SetDefault("connection.device", cfg.Connection.Device)
	v.SetDefault("connection.baud", cfg.Connection.Baud)
	v.SetDefault("connection.firmware", cfg.Connection.Firmware)
	v.SetDefault("printer.print_area_width", cfg.Printer.PrintAreaWidth)
	v.SetDefault("printer.print_area_depth", cfg.Printer.PrintAreaDepth)
	v.SetDefault("printer.print_area_height", cfg.Printer.PrintAreaHeight)
	v.SetDefault("printer.travel_feed_rate", cfg.Printer.TravelFeedRate)
	v.SetDefault("printer.max_z_feed_rate", cfg.Printer.MaxZFeedRate)
	v.SetDefault("printer.has_heated_bed", cfg.Printer.HasHeatedBed)
	v.SetDefault("panel.tick_interval", cfg.Panel.TickInterval)
	v.SetDefault("panel.status_dwell", cfg.Panel.StatusDwell)
	v.SetDefault("panel.history_size", cfg.Panel.HistorySize)
	v.SetDefault("panel.xy_move_distances", cfg.Panel.XYMoveDistances)
	v.SetDefault("panel.z_move_distances", cfg.Panel.ZMoveDistances)
	v.SetDefault("panel.no_power_control", cfg.Panel.NoPowerControl)
}

// Validate checks ranges and enumerations. The first problem found is
// returned as a CONFIG_VALIDATION error naming the option.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.ConfigValidationError("server.addr", "must not be empty")
	}
	if err := positiveDuration("server.status_interval", c.Server.StatusInterval); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.ConfigValidationError("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	switch c.Connection.Mode {
	case ModeVirtual:
	case ModeSerial:
		if c.Connection.Device == "" {
			return errors.ConfigValidationError("connection.device", "required for serial mode")
		}
		if c.Connection.Baud <= 0 {
			return errors.ConfigValidationError("connection.baud", "must be positive")
		}
	default:
		return errors.ConfigValidationError("connection.mode", fmt.Sprintf("unknown mode %q", c.Connection.Mode))
	}
	for name, v := range map[string]float64{
		"printer.print_area_width":  c.Printer.PrintAreaWidth,
		"printer.print_area_depth":  c.Printer.PrintAreaDepth,
		"printer.print_area_height": c.Printer.PrintAreaHeight,
		"printer.travel_feed_rate":  c.Printer.TravelFeedRate,
		"printer.max_z_feed_rate":   c.Printer.MaxZFeedRate,
	} {
		if v <= 0 {
			return errors.ConfigValidationError(name, "must be positive")
		}
	}
	if err := positiveDuration("panel.tick_interval", c.Panel.TickInterval); err != nil {
		return err
	}
	if c.Panel.StatusDwell < time.Second {
		return errors.ConfigValidationError("panel.status_dwell", "must be at least 1s")
	}
	if c.Panel.HistorySize <= 0 {
		return errors.ConfigValidationError("panel.history_size", "must be positive")
	}
	if _, err := jog.ParsePresets(c.Panel.XYMoveDistances); err != nil {
		return errors.ConfigValidationError("panel.xy_move_distances", err.Error())
	}
	if _, err := jog.ParsePresets(c.Panel.ZMoveDistances); err != nil {
		return errors.ConfigValidationError("panel.z_move_distances", err.Error())
	}
	return nil
}

func positiveDuration(option string, d time.Duration) error {
	if d <= 0 {
		return errors.ConfigValidationError(option, "must be a positive duration")
	}
	return nil
}

// WriteDefault writes the default configuration as YAML and returns the
// path written. An existing file is only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
