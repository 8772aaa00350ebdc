package di

import (
    "context"
    "fmt"
    "time"

    "TradeQuorum/internal/domain/models"
    "TradeQuorum/internal/domain/repository"
    domsvc "TradeQuorum/internal/domain/service"
    "TradeQuorum/internal/handler/api"
    mid "TradeQuorum/internal/middleware"
    internalrepo "TradeQuorum/internal/repository"
    icache "TradeQuorum/internal/service/cache"
    "TradeQuorum/internal/service/marketdata"
    "TradeQuorum/internal/service/ratelimit"
    "TradeQuorum/internal/services/agents"
    "TradeQuorum/internal/usecase"
    pkgch "TradeQuorum/pkg/clickhouse"
    "TradeQuorum/pkg/config"
    pkgkafka "TradeQuorum/pkg/kafka"
    applogger "TradeQuorum/pkg/logger"
    "TradeQuorum/pkg/metrics"
    "TradeQuorum/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// fact store schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.FactStoreSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideFactStore creates the ClickHouse-backed fact store.
func ProvideFactStore(chClient *pkgch.Client, log *applogger.Logger) repository.FactStore {
	store := internalrepo.NewClickHouseFactStore(chClient.DB())
	if cs, ok := store.(*internalrepo.ClickHouseFactStore); ok {
		cs.SetLogger(log)
	}
	return store
}

// ProvideKafkaProducer creates the Kafka producer for decision handoff.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideExecution creates the Kafka execution adapter.
func ProvideExecution(producer *pkgkafka.Producer, cfg *config.Config) repository.Execution {
	return internalrepo.NewKafkaExecution(producer, cfg.Kafka.DecisionsTopic)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideClaimPool creates the intake buffer for externally delivered claims.
func ProvideClaimPool() *usecase.ClaimPool {
	return usecase.NewClaimPool()
}

// ProvideKafkaClaimsHandler registers the handler for the claims topic.
func ProvideKafkaClaimsHandler(pool *usecase.ClaimPool, m repository.Metrics, cfg *config.Config, log *applogger.Logger) *usecase.KafkaClaimsHandler {
	return usecase.NewKafkaClaimsHandler(cfg.Kafka.ClaimsTopic, pool, m, log)
}

// ProvideMarketStream creates the exchange WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return marketdata.New(
		cfg.MarketData.APIKey,
		cfg.MarketData.WebSocketURL,
		cfg.Trading.Universe,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
	)
}

// ProvideStatsBook creates the in-process market stats source. With
// Redis enabled, snapshots are written through to the shared cache;
// otherwise an in-process TTL cache bridges short staleness windows.
func ProvideStatsBook(cfg *config.Config) *marketdata.StatsBook {
	var snap icache.BytesCache = icache.NewTTLCache()
	if cfg.MarketData.Cache.Enabled {
		snap = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.MarketData.Cache.Addr,
			Password: cfg.MarketData.Cache.Password,
			DB:       cfg.MarketData.Cache.DB,
		})
	}
	return marketdata.NewStatsBook(marketdata.WithCache(snap, cfg.MarketData.Cache.TTL))
}

// ProvideTickCollector wires the stream through the validation and
// throttling pipeline into the stats book.
func ProvideTickCollector(
	stream repository.MarketStream,
	book *marketdata.StatsBook,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickCollector {
	var popts []mid.PipelineOption
	if cfg.MarketData.MaxTicksPerSec > 0 {
		popts = append(popts, mid.WithMaxRPS(cfg.MarketData.MaxTicksPerSec))
	}
	pipe := mid.NewTickPipeline(book, m, popts...)
	return usecase.NewTickCollector(stream, pipe, m)
}

// ProvideAgentRegistry builds one HTTP model agent per configured role.
func ProvideAgentRegistry(cfg *config.Config, log *applogger.Logger) *agents.Registry {
	if len(cfg.Agents.Roles) == 0 {
		return agents.NewRegistry()
	}
	base := agents.NewHTTPServiceBase(cfg, ratelimit.New())
	list := make([]domsvc.Agent, 0, len(cfg.Agents.Roles))
	for _, role := range cfg.Agents.Roles {
		list = append(list, agents.NewHTTPModelAgent(models.AgentRole(role), base, cfg.Agents.Retries, log))
	}
	return agents.NewRegistry(list...)
}

// ProvideSourceDirectory builds the static allowlist from config.
func ProvideSourceDirectory(cfg *config.Config) usecase.SourceDirectory {
	return usecase.StaticSources{
		models.EvidenceNews:   cfg.Trading.AllowedSources.News,
		models.EvidenceMarket: cfg.Trading.AllowedSources.Market,
		models.EvidenceTech:   cfg.Trading.AllowedSources.Tech,
	}
}

// ProvideClaimVerifier creates the claim verifier use case.
func ProvideClaimVerifier(sources usecase.SourceDirectory, m repository.Metrics, log *applogger.Logger) *usecase.ClaimVerifier {
	return usecase.NewClaimVerifier(usecase.DefaultVerifierConfig(), sources, m, log)
}

// ProvideConsensusBuilder creates the consensus builder use case.
func ProvideConsensusBuilder(log *applogger.Logger) *usecase.ConsensusBuilder {
	return usecase.NewConsensusBuilder(log)
}

// ProvideDecisionGenerator creates the decision generator use case.
func ProvideDecisionGenerator(m repository.Metrics, log *applogger.Logger) *usecase.DecisionGenerator {
	return usecase.NewDecisionGenerator(m, log)
}

// ProvideRoundController wires the full round pipeline.
func ProvideRoundController(
	cfg *config.Config,
	registry *agents.Registry,
	verifier *usecase.ClaimVerifier,
	consensus *usecase.ConsensusBuilder,
	decisions *usecase.DecisionGenerator,
	book *marketdata.StatsBook,
	facts repository.FactStore,
	exec repository.Execution,
	pool *usecase.ClaimPool,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.RoundController {
	return usecase.NewRoundController(
		usecase.RoundControllerConfig{
			Universe:     cfg.Trading.Universe,
			Profile:      models.RiskProfile(cfg.Trading.RiskProfile),
			MaxPositions: cfg.Trading.MaxPositions,
			AgentTimeout: cfg.Agents.Timeout,
		},
		registry.Agents(),
		verifier,
		consensus,
		decisions,
		book,
		facts,
		exec,
		pool,
		m,
		log,
	)
}

// ProvideRoundsHandler creates the HTTP handler for round endpoints.
func ProvideRoundsHandler(log *applogger.Logger, controller *usecase.RoundController, facts repository.FactStore) *api.RoundsEchoHandler {
	return api.NewRoundsEchoHandler(log, controller, facts)
}

// ProvideApp creates the application server.
func ProvideApp(
    cfg *config.Config,
    log *applogger.Logger,
    collector *usecase.TickCollector,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaClaimsHandler,
    chClient *pkgch.Client,
    controller *usecase.RoundController,
    exec repository.Execution,
    handler *api.RoundsEchoHandler,
) *server.App {
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.NoopHook{})
    }
    return server.New(cfg, log, collector, consumer, kh, chClient, controller, exec, handler)
}
