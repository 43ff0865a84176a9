// Package relay defines the contract the core consumes for relay
// identity and quota configuration. Relay CRUD administration itself
// (creating/listing/activating relays) is out of scope here; this is
// only the read surface an external admin component would implement.
package relay

import "relaycore/lib/policy"

// Config is one tenant relay's identity and policy.
type Config struct {
	ID          string
	Name        string
	Description string
	Pubkey      string
	Contact     string
	Active      bool
	Spec        policy.Spec
}

// ConfigProvider resolves a relay id to its Config. The transport layer
// looks one up per incoming connection (derived from the URL path or
// host at upgrade time); the core never hardcodes a relay id.
type ConfigProvider interface {
	Get(id string) (*Config, error)
}
