/*
 * Copyright (c) 2024. Brian Walton -- All Rights Reserved
 *
 * This file is part of the riban heating controller project.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/riban-bw/heating-controller/internal/logger"

	"github.com/pborman/getopt/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile  = "config.yaml"
	defaultStoreFile   = "heatctl.eeprom"
	defaultMQTTURL     = "tcp://127.0.0.1:1883"
	defaultTopicPrefix = "heatctl"

	// OneWireW1 reads sensors through the kernel w1 sysfs interface;
	// OneWireSim answers from the configured sensor list.
	OneWireW1  = "w1"
	OneWireSim = "sim"
)

// MQTTConfig enables the status publisher and command bridge.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	TopicPrefix string `yaml:"topic_prefix"`
}

func NewMQTTConfig() *MQTTConfig {
	return &MQTTConfig{URL: defaultMQTTURL, TopicPrefix: defaultTopicPrefix}
}

// GPIOConfig selects the relay lines. A nil GPIOConfig runs with fake
// outputs (bench mode).
type GPIOConfig struct {
	Chip       string `yaml:"chip"`
	BoilerLine *int   `yaml:"boiler_line"`
	PumpLine   *int   `yaml:"pump_line"`
}

// SimSensorConfig seeds one simulated bus device.
type SimSensorConfig struct {
	UID     string  `yaml:"uid"`
	Celsius float64 `yaml:"celsius"`
}

type OneWireConfig struct {
	Mode    string             `yaml:"mode"`
	Sensors []*SimSensorConfig `yaml:"sensors,omitempty"`
}

type Config struct {
	LogLevel     zapcore.Level  `yaml:"log_level"`
	StoreFile    string         `yaml:"store_file"`
	SerialDevice string         `yaml:"serial_device"` // empty = stdin/stdout
	DBFile       string         `yaml:"db_file"`       // empty = telemetry off
	MQTTConfig   *MQTTConfig    `yaml:"mqtt"`
	GPIO         *GPIOConfig    `yaml:"gpio,omitempty"`
	OneWire      *OneWireConfig `yaml:"onewire"`
}

func defConfig() *Config {
	return &Config{
		StoreFile:  defaultStoreFile,
		MQTTConfig: NewMQTTConfig(),
		OneWire:    &OneWireConfig{Mode: OneWireW1},
	}
}

func (cfg *Config) FillDefaults() {
	if cfg.StoreFile == "" {
		cfg.StoreFile = defaultStoreFile
	}
	if cfg.MQTTConfig == nil {
		cfg.MQTTConfig = NewMQTTConfig()
	}
	if cfg.MQTTConfig.URL == "" {
		cfg.MQTTConfig.URL = defaultMQTTURL
	}
	if cfg.MQTTConfig.TopicPrefix == "" {
		cfg.MQTTConfig.TopicPrefix = defaultTopicPrefix
	}
	if cfg.OneWire == nil {
		cfg.OneWire = &OneWireConfig{}
	}
	if cfg.OneWire.Mode == "" {
		cfg.OneWire.Mode = OneWireW1
	}
}

func prettyPrint(cfg *Config) {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		logger.L().Error("Failed to marshal config for pretty print", err)
		return
	}
	logger.L().Debugf("--- Config ---\n%s\n\n", string(d))
}

// Get builds the configuration from the config file and command line.
func Get() *Config {
	cfg := defConfig()
	logLevel := getopt.StringLong("log-level", 'l', "", "log levels: debug, info, warn, error, dpanic, panic, fatal")
	configFile := getopt.StringLong("config", 'c', defaultConfigFile, "config file pathname")
	storeFile := getopt.StringLong("store", 's', "", "non-volatile store image pathname")
	dbFile := getopt.StringLong("db", 'd', "", "telemetry DB file pathname")
	serialDev := getopt.StringLong("serial", 't', "", "serial device pathname (default stdin/stdout)")

	getopt.Parse()

	if err := readFile(cfg, *configFile); err != nil {
		log.Panicf("GetConfig: %v", err)
	}
	logger.L().Infof("Using config file `%v`", *configFile)

	if *storeFile != "" {
		cfg.StoreFile = *storeFile
	}
	if *dbFile != "" {
		cfg.DBFile = *dbFile
	}
	if *serialDev != "" {
		cfg.SerialDevice = *serialDev
	}

	cfg.FillDefaults()

	if *logLevel != "" {
		if err := cfg.LogLevel.Set(*logLevel); err != nil {
			logger.L().Errorf("Wrong log level `%v`: %v", *logLevel, err)
		}
	}
	logger.SetLogLevel(cfg.LogLevel)

	logger.L().Infof("Using store image `%v`", cfg.StoreFile)
	prettyPrint(cfg)

	return cfg
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

func readFile(cfg *Config, configFileName string) error {
	if !fileExists(configFileName) {
		return nil
	}

	f, err := os.Open(configFileName)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return nil
}
