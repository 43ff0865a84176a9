package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"relaycore/lib/config"
	"relaycore/lib/eventstore"
	"relaycore/lib/logging"
	"relaycore/lib/relay"
	"relaycore/lib/transport"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := logging.InitLogger(config.GetDataDir()); err != nil {
		log.Fatalf("logging: %v", err)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		logging.Fatalf("config: %v", err)
	}

	dsn := config.GetDataDir() + "/relaycore.db"
	store, err := eventstore.Open(dsn)
	if err != nil {
		logging.Fatalf("eventstore: %v", err)
	}

	configs := relay.NewStaticProvider(relay.Config{
		ID:          cfg.Relay.Name,
		Name:        cfg.Relay.Name,
		Description: cfg.Relay.Description,
		Pubkey:      cfg.Relay.Pubkey,
		Contact:     cfg.Relay.Contact,
		Active:      true,
		Spec: relay.SpecFromConfig(
			cfg.Policy.MaxBytesPerPubkey,
			cfg.Policy.MaxEventSize,
			cfg.Policy.PruneEnabled,
		),
	})

	srv := transport.New(store, configs)

	app := fiber.New()
	srv.Mount(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	logging.Infof("relaycore listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		logging.Fatalf("server: %v", err)
	}
}
