package models

import "fmt"

// Node describes one configured search-engine node. Nodes are managed
// independently: each has its own HTTP endpoint, transport port and on-disk
// data/log paths, and may be running or stopped at any time.
type Node struct {
	Name          string `json:"name"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	TransportPort int    `json:"transport_port"`
	DataPath      string `json:"data_path"`
	LogsPath      string `json:"logs_path"`
	Cluster       string `json:"cluster,omitempty"`
}

// URL returns the node's HTTP base URL.
func (n Node) URL() string {
	return fmt.Sprintf("http://%s:%d", n.Host, n.Port)
}

// Validate checks the fields required to address a node.
func (n Node) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("node name is required")
	}
	if n.Host == "" {
		return fmt.Errorf("node host is required")
	}
	if n.Port < 1 || n.Port > 65535 {
		return fmt.Errorf("invalid node port: %d", n.Port)
	}
	return nil
}
