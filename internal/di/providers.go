package di

import (
	"context"
	"fmt"
	"time"

	"TradeHook/internal/domain/repository"
	"TradeHook/internal/handler/api"
	internalrepo "TradeHook/internal/repository"
	"TradeHook/internal/service/dedup"
	"TradeHook/internal/service/notify"
	"TradeHook/internal/service/quant"
	"TradeHook/internal/service/trend"
	"TradeHook/internal/service/upbit"
	"TradeHook/internal/usecase"
	pkgch "TradeHook/pkg/clickhouse"
	"TradeHook/pkg/config"
	xhttp "TradeHook/pkg/http"
	pkgkafka "TradeHook/pkg/kafka"
	applogger "TradeHook/pkg/logger"
	"TradeHook/pkg/metrics"
	"TradeHook/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideUpbitClient creates the exchange gateway, attaching the websocket
// price stream when enabled.
func ProvideUpbitClient(cfg *config.Config, stream *upbit.Stream) *upbit.Client {
	client := upbit.NewClient(upbit.ClientConfig{
		APIBase:        cfg.Upbit.APIBase,
		AccessKey:      cfg.Upbit.AccessKey,
		SecretKey:      cfg.Upbit.SecretKey,
		Timeout:        cfg.Upbit.Timeout,
		PriceStaleness: cfg.Upbit.PriceStaleness,
	})
	if stream != nil {
		client.AttachStream(stream)
	}
	return client
}

// ProvideUpbitStream creates the websocket price stream, or nil when
// streaming is disabled.
func ProvideUpbitStream(cfg *config.Config, l *applogger.Logger) *upbit.Stream {
	if !cfg.Upbit.Stream {
		return nil
	}
	markets := cfg.Upbit.StreamMarkets
	if len(markets) == 0 {
		markets = []string{cfg.Trend.ReferenceMarket}
	}
	return upbit.NewStream(upbit.StreamConfig{
		URL:            cfg.Upbit.WebSocketURL,
		Markets:        markets,
		ReconnectDelay: cfg.Upbit.ReconnectDelay,
		PingInterval:   cfg.Upbit.PingInterval,
	}, l)
}

// ProvideExchange exposes the gateway under its domain interface.
func ProvideExchange(client *upbit.Client) repository.Exchange {
	return client
}

// ProvideCandleSource exposes the gateway's candle endpoint.
func ProvideCandleSource(client *upbit.Client) repository.CandleSource {
	return client
}

// ProvideSignalCache selects the dedup backend.
func ProvideSignalCache(cfg *config.Config) (repository.SignalCache, error) {
	switch cfg.Dedup.Backend {
	case "redis":
		cache, err := dedup.NewRedisCache(dedup.RedisConfig{
			Addr:     cfg.Dedup.Redis.Addr,
			Password: cfg.Dedup.Redis.Password,
			DB:       cfg.Dedup.Redis.DB,
			Prefix:   cfg.Dedup.Redis.Prefix,
			Window:   cfg.Trading.DedupWindow,
			FailOpen: cfg.Dedup.FailOpen,
		})
		if err != nil {
			return nil, fmt.Errorf("redis dedup: %w", err)
		}
		return cache, nil
	default:
		return dedup.NewWindowCache(cfg.Trading.DedupWindow), nil
	}
}

// ProvideTrendGate creates the EMA cross gate over reference candles.
func ProvideTrendGate(candles repository.CandleSource, l *applogger.Logger, cfg *config.Config) *trend.Gate {
	return trend.NewGate(candles, l, cfg.Trend.ReferenceMarket, cfg.Trend.CandleUnit, cfg.Trend.CandleCount)
}

// ProvideNotifier creates the SMTP notifier, or a noop when disabled.
func ProvideNotifier(cfg *config.Config) repository.Notifier {
	if !cfg.Notify.Enabled {
		return notify.NoopNotifier{}
	}
	return notify.NewEmailNotifier(notify.EmailConfig{
		Host:     cfg.Notify.SMTPHost,
		Port:     cfg.Notify.SMTPPort,
		Username: cfg.Notify.Username,
		Password: cfg.Notify.Password,
		From:     cfg.Notify.From,
		To:       cfg.Notify.To,
	})
}

// ProvideJournal selects the execution journal backend.
func ProvideJournal(cfg *config.Config) (repository.Journal, error) {
	switch cfg.Journal.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Journal.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Journal.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Journal.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Journal.Kafka.MaxAttempts),
			pkgkafka.WithTimeouts(cfg.Journal.Kafka.WriteTimeout, cfg.Journal.Kafka.ReadTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka journal: %w", err)
		}
		return internalrepo.NewKafkaJournal(producer, cfg.Journal.Kafka.Topic), nil

	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Journal.ClickHouse.Host),
			pkgch.WithPort(cfg.Journal.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Journal.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Journal.ClickHouse.User, cfg.Journal.ClickHouse.Password),
			pkgch.WithHTTP(cfg.Journal.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.Journal.ClickHouse.DialTimeout, cfg.Journal.ClickHouse.ReadTimeout, cfg.Journal.ClickHouse.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse journal: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		journal, err := internalrepo.NewClickHouseJournal(ctx, client, cfg.Journal.ClickHouse.Database+".executions")
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse journal schema: %w", err)
		}
		return journal, nil

	default:
		return internalrepo.NoopJournal{}, nil
	}
}

// ProvideQuantCalculator creates the order quantity calculator.
func ProvideQuantCalculator(cfg *config.Config) *quant.Calculator {
	return quant.NewCalculator(cfg.Trading.OrderMinKRW)
}

// ProvideExecutor creates the execution engine.
func ProvideExecutor(
	exchange repository.Exchange,
	notifier repository.Notifier,
	journal repository.Journal,
	m repository.Metrics,
	q *quant.Calculator,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Executor {
	return usecase.NewExecutor(exchange, notifier, journal, m, q, l, usecase.ExecutorConfig{
		OrderMinKRW:     cfg.Trading.OrderMinKRW,
		LotPrecision:    cfg.Trading.LotPrecision,
		PollInterval:    cfg.Trading.PollInterval,
		PollMaxAttempts: cfg.Trading.PollMaxAttempts,
	})
}

// ProvideResolver creates the direction policy resolver.
func ProvideResolver(gate *trend.Gate, l *applogger.Logger, cfg *config.Config) *usecase.Resolver {
	return usecase.NewResolver(cfg.Trading.DirectionPolicy, gate, l)
}

// ProvideWebhookHandler creates the inbound HTTP handler.
func ProvideWebhookHandler(
	l *applogger.Logger,
	resolver *usecase.Resolver,
	executor *usecase.Executor,
	gate *trend.Gate,
	cache repository.SignalCache,
	m repository.Metrics,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewWebhookHandler(l, resolver, executor, gate, cache, m, cfg.Server.WebhookSecret)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	gate *trend.Gate,
	stream *upbit.Stream,
	handler xhttp.Handler,
	journal repository.Journal,
) *server.App {
	return server.New(cfg, l, gate, stream, handler, journal)
}
