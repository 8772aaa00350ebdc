//go:build wireinject
// +build wireinject

package di

import (
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Ambient
        ProvideLogger,
        ProvideMetrics,

        // Infrastructure clients
        ProvideClickHouseClient,
        ProvideKafkaProducer,
        ProvideKafkaConsumer,

        // Repositories
        ProvideFactStore,
        ProvideExecution,
        ProvideMarketStream,
        ProvideStatsBook,

        // Intake
        ProvideClaimPool,
        ProvideKafkaClaimsHandler,

        // Agents
        ProvideAgentRegistry,
        ProvideSourceDirectory,

        // Use cases
        ProvideClaimVerifier,
        ProvideConsensusBuilder,
        ProvideDecisionGenerator,
        ProvideTickCollector,
        ProvideRoundController,

        // HTTP
        ProvideRoundsHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
