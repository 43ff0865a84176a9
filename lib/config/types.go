package config

// Config is the root configuration structure unmarshaled from config.yaml.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Policy  PolicyConfig  `mapstructure:"policy"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	BindAddress string `mapstructure:"bind_address"`
	DataPath    string `mapstructure:"data_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// RelayConfig is the default identity used for relays that don't override
// it in their own persisted row (see lib/relay.Config).
type RelayConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Contact     string `mapstructure:"contact"`
	Pubkey      string `mapstructure:"pubkey"`
	SupportedNIPs []int `mapstructure:"supported_nips"`
}

// PolicyConfig is the default quota/size policy new relays are created
// with; see lib/policy.Spec for the runtime shape.
type PolicyConfig struct {
	MaxBytesPerPubkey int64         `mapstructure:"max_bytes_per_pubkey"`
	MaxEventSize      map[int]int   `mapstructure:"max_event_size"`
	DefaultEventSize  int           `mapstructure:"default_event_size"`
	PruneEnabled      bool          `mapstructure:"prune_enabled"`
	PruneBatchSize    int           `mapstructure:"prune_batch_size"`
}
