package config

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cachedConfig   atomic.Value // stores *Config
	configLoadOnce sync.Once
	configLoadErr  error

	writeMutex sync.Mutex

	debounceTimer *time.Timer
	debounceMutex sync.Mutex
)

// InitConfig initializes the global viper configuration
func InitConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("RELAYCORE")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config.yaml found, creating default configuration...")
			if err := viper.WriteConfigAs("config.yaml"); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read created config: %w", err)
			}
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := reloadConfigCache(); err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		debounceMutex.Lock()
		defer debounceMutex.Unlock()

		if debounceTimer != nil {
			debounceTimer.Stop()
		}

		debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
			log.Printf("config file changed (debounced): %s", e.Name)
			writeMutex.Lock()
			defer writeMutex.Unlock()

			if err := reloadConfigCache(); err != nil {
				log.Printf("error reloading config cache after file change: %v", err)
			}
		})
	})

	return nil
}

func reloadConfigCache() error {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cachedConfig.Store(cfg)
	return nil
}

// GetConfig returns the cached configuration struct.
func GetConfig() (*Config, error) {
	if cfg := cachedConfig.Load(); cfg != nil {
		return cfg.(*Config), nil
	}

	configLoadOnce.Do(func() {
		configLoadErr = reloadConfigCache()
	})

	if configLoadErr != nil {
		return nil, configLoadErr
	}

	cfg := cachedConfig.Load()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	return cfg.(*Config), nil
}

// GetDataDir returns the data directory path.
func GetDataDir() string {
	cfg, err := GetConfig()
	if err != nil || cfg.Server.DataPath == "" {
		return "./data"
	}
	return cfg.Server.DataPath
}

// RefreshConfig forces a reload of the configuration cache. Call after
// external changes to the on-disk file.
func RefreshConfig() error {
	writeMutex.Lock()
	defer writeMutex.Unlock()

	return reloadConfigCache()
}

// setDefaults registers the default values. They fill any key missing
// from config.yaml and are written out when no config file exists yet.
func setDefaults() {
	viper.SetDefault("server.port", 9000)
	viper.SetDefault("server.bind_address", "0.0.0.0")
	viper.SetDefault("server.data_path", "./data")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("relay.name", "relaycore")
	viper.SetDefault("relay.description", "a multi-tenant nostr relay")
	viper.SetDefault("relay.contact", "")
	viper.SetDefault("relay.pubkey", "")
	viper.SetDefault("relay.supported_nips", []int{1, 9, 11, 12, 15, 16, 20, 33})

	viper.SetDefault("policy.max_bytes_per_pubkey", 100*1024*1024)
	viper.SetDefault("policy.default_event_size", 65536)
	viper.SetDefault("policy.prune_enabled", true)
	viper.SetDefault("policy.prune_batch_size", 10000)
}
