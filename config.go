package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/pqtls/kexdispatch/pkg/namedgroup"
)

// Config represents the main configuration structure
type Config struct {
	Daemon DaemonGlobalConfig `toml:"daemon"`
	Peers  []PeerConfig       `toml:"peers"`
}

// DaemonGlobalConfig contains global daemon settings
type DaemonGlobalConfig struct {
	ListenAddr string `toml:"listen_addr"` // Address to listen on (optional, omit to only initiate)
	GroupName  string `toml:"group"`       // Default named group for all peers, e.g. "p256_kyber512"
	Interval   int    `toml:"interval"`    // Default interval in seconds
}

// PeerConfig represents configuration for a single peer
type PeerConfig struct {
	Name      string `toml:"name"`       // Peer identifier
	Endpoint  string `toml:"endpoint"`   // Peer's address (host:port) - optional if only accepting
	OutputPSK string `toml:"output_psk"` // Where to save the shared PSK
	GroupName string `toml:"group"`      // Override daemon.group for this peer (empty = use default)
	Interval  int    `toml:"interval"`   // Override default interval (optional, 0 = use default)
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(filename string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Daemon.GroupName == "" {
		return fmt.Errorf("daemon.group is required")
	}
	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = 120 // Default to 120 seconds
	}

	if len(c.Peers) == 0 {
		return fmt.Errorf("at least one peer must be configured")
	}

	hasListenAddr := c.Daemon.ListenAddr != ""
	hasOutgoingPeer := false

	peerNames := make(map[string]bool)
	for i, peer := range c.Peers {
		if peer.Name == "" {
			return fmt.Errorf("peer %d: name is required", i)
		}
		if peerNames[peer.Name] {
			return fmt.Errorf("peer %d: duplicate name '%s'", i, peer.Name)
		}
		peerNames[peer.Name] = true

		if peer.OutputPSK == "" {
			return fmt.Errorf("peer '%s': output_psk is required", peer.Name)
		}

		if peer.Endpoint != "" {
			hasOutgoingPeer = true
		}

		if peer.Interval <= 0 {
			c.Peers[i].Interval = c.Daemon.Interval
		}
		if peer.GroupName == "" {
			c.Peers[i].GroupName = c.Daemon.GroupName
		}

		groupID, ok := namedgroup.NameToGroupID(c.Peers[i].GroupName)
		if !ok {
			return fmt.Errorf("peer '%s': unknown group '%s'", peer.Name, c.Peers[i].GroupName)
		}
		if !namedgroup.Available(groupID) {
			return fmt.Errorf("peer '%s': group '%s' has no available implementation in this build", peer.Name, c.Peers[i].GroupName)
		}
	}

	if !hasListenAddr && !hasOutgoingPeer {
		return fmt.Errorf("must either specify daemon.listen_addr or configure at least one peer with an endpoint")
	}

	return nil
}
