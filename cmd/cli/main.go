package main

import (
	"context"
	"log"

	"github.com/Ursa1337/account-service/internal/client/cli"
	"github.com/Ursa1337/account-service/internal/client/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app := cli.NewApp(cfg)
	app.Run(ctx)
}
