package main

import (
	"context"
	"log"
	"os"

	"github.com/absmach/cortex/daemon"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	envPrefix = "CORTEX_"
	pathEnv   = ".env"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := daemon.Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if err := daemon.Start(ctx, cancel, cfg); err != nil {
		log.Fatalf("failed to start node: %s", err.Error())
	}
}
