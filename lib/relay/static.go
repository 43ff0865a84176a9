package relay

import (
	"fmt"

	"relaycore/lib/policy"
)

// StaticProvider serves a single relay configuration regardless of the
// requested id. It exists so cmd/relayd is runnable without the
// out-of-scope admin CRUD surface; a real deployment would inject a
// ConfigProvider backed by the relays table instead.
type StaticProvider struct {
	cfg Config
}

// NewStaticProvider returns a ConfigProvider that always answers cfg.
func NewStaticProvider(cfg Config) *StaticProvider {
	return &StaticProvider{cfg: cfg}
}

func (p *StaticProvider) Get(id string) (*Config, error) {
	if !p.cfg.Active {
		return nil, fmt.Errorf("relay: %q is not active", id)
	}
	cfg := p.cfg
	cfg.ID = id
	return &cfg, nil
}

// SpecFromConfig builds a policy.Spec from the ambient defaults in
// config.PolicyConfig.
func SpecFromConfig(maxBytesPerPubkey int64, maxEventSize map[int]int, pruneEnabled bool) policy.Spec {
	return policy.Spec{
		MaxBytesPerPubkey: maxBytesPerPubkey,
		MaxEventSize:      maxEventSize,
		PruneEnabled:      pruneEnabled,
	}
}
