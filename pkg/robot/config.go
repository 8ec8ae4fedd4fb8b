package robot

import (
	"encoding/json"
	"os"
)

const DefaultConfigFile = "linebot.json"

// Config holds the robot configuration
type Config struct {
	Bridge BridgeConfig    `json:"bridge"`
	Lifter LifterConfig    `json:"lifter"`
	Line   LineCalibration `json:"line,omitempty"`

	// TagFile points at the YAML tag table. Empty means the built-in table.
	TagFile string `json:"tag_file,omitempty"`
	// TuningFile points at the navigation tuning file. Empty means defaults.
	TuningFile string `json:"tuning_file,omitempty"`
}

// BridgeConfig holds the serial link to the microcontroller
type BridgeConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate,omitempty"`
}

// LifterConfig holds the lifter servo bus and calibration
type LifterConfig struct {
	Port        string            `json:"port,omitempty"`
	Calibration LifterCalibration `json:"calibration"`
}

// HasLifter returns true if a lifter port is configured
func (l *LifterConfig) HasLifter() bool {
	return l.Port != ""
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Config{
		Lifter: LifterConfig{Calibration: DefaultLifterCalibration()},
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
