// Package env provides shared environment setup for the CRUMBS tools.
package env

import (
	"flag"
	"log"
	"os"

	"github.com/CameronBrooks11/CRUMBS/pkg/comm/mqtt"
	"github.com/CameronBrooks11/CRUMBS/pkg/registry"
)

// Config provides common options for tools talking to a bridged bus.
type Config struct {
	// BrokerURL specifies the MQTT broker carrying the bridged bus.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
	// RegistryPath points at the TOML file naming slices and types.
	RegistryPath string
}

var defaultConfig = Config{
	BrokerURL: "mqtt://localhost:1883/crumbs/",
}

func init() {
	if val := os.Getenv("CRUMBS_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	if val := os.Getenv("CRUMBS_REGISTRY"); val != "" {
		defaultConfig.RegistryPath = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.RegistryPath, "registry", defaultConfig.RegistryPath, "Slice registry TOML file.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewQueue creates an MQTT queue from the config. When the broker URL
// carries no client-id, a stable one is derived from the machine.
func (c *Config) NewQueue(component string) (*mqtt.Queue, error) {
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(c.BrokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID(component + "-" + MachineID())
	}
	return mqtt.NewQueue(opts, topicPrefix), nil
}

// MustNewQueue creates an MQTT queue and fails on error.
func (c *Config) MustNewQueue(component string) *mqtt.Queue {
	q, err := c.NewQueue(component)
	if err != nil {
		log.Fatalln(err)
	}
	return q
}

// LoadRegistry loads the slice registry. Without a configured path an
// empty registry is returned, which names everything numerically.
func (c *Config) LoadRegistry() (*registry.Registry, error) {
	if c.RegistryPath == "" {
		return registry.Parse("")
	}
	return registry.Load(c.RegistryPath)
}
