package main

import (
	"flag"
	"log"
	"os"

	"TradeQuorum/internal/di"
	"TradeQuorum/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s profile=%s universe=%v", cfg.Environment, cfg.Trading.RiskProfile, cfg.Trading.Universe)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s\n", cfg.ClickHouse.Database)
	log.Printf("kafka: connected brokers=%v decisions=%s claims=%s", cfg.Kafka.Brokers, cfg.Kafka.DecisionsTopic, cfg.Kafka.ClaimsTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
