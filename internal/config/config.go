// Package config exposes the static variables that configure a quorum
// process, loaded through a .yaml file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Conf describes the tunables shared by every replica in a cluster.
type Conf struct {
	BasePort       int           `yaml:"base_port"`       // BasePort is the TCP port of the client pseudo-replica (id 0); replica id i listens on BasePort+i.
	ReplicaCount   int           `yaml:"replica_count"`   // ReplicaCount is the number of replicas the shell auto-starts unless ManualMode is set.
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // ConnectTimeout bounds dialing a peer's proxy.
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // WriteTimeout bounds writing one outbound frame.

	// ManualMode defines whether the shell waits for an operator "start"
	// command (true) or brings up a ReplicaCount-sized cluster on launch
	// and goes straight to accepting propose/query commands (false).
	ManualMode bool `yaml:"manual_mode"`

	// LogLevel is "debug" or "info". At "info", replicas and proxies only
	// log protocol progress (proposals started, quorum reached, learned,
	// query answers) and listener start-up; at "debug" they also log every
	// stale/ignored protocol message they silently discard and every
	// dropped connection, failed dial or failed write.
	LogLevel string `yaml:"log_level"`
}

// Load reads fn and fills in any field left zero with FillDefaults.
func Load(fn string) (*Conf, error) {
	var c Conf
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", fn, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", fn, err)
	}
	c.FillDefaults()
	return &c, nil
}

// FillDefaults fills in fields left empty in the .yaml file, or that need
// a run-time default. Mirrors the upstream FillEmptyFields convention:
// any field not set here must be set explicitly in the file.
func (c *Conf) FillDefaults() {
	if c.BasePort == 0 {
		c.BasePort = 9527
	}
	if c.ReplicaCount == 0 {
		c.ReplicaCount = 3
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 2 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
