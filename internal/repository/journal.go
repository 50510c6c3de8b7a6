package repository

import (
	"context"
	"fmt"

	"TradeHook/internal/domain/models"
	"TradeHook/pkg/clickhouse"
	"TradeHook/pkg/kafka"
)

// NoopJournal discards records; used when no journal backend is configured.
type NoopJournal struct{}

func (NoopJournal) Record(context.Context, *models.ExecutionRecord) error { return nil }
func (NoopJournal) Close() error                                          { return nil }

// KafkaJournal publishes execution records as JSON, keyed by market so a
// market's history stays on one partition.
type KafkaJournal struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaJournal(producer *kafka.Producer, topic string) *KafkaJournal {
	return &KafkaJournal{producer: producer, topic: topic}
}

func (j *KafkaJournal) Record(ctx context.Context, rec *models.ExecutionRecord) error {
	return j.producer.Publish(ctx, j.topic, []byte(rec.Market), rec)
}

func (j *KafkaJournal) Close() error {
	return j.producer.Close()
}

// ClickHouseJournal inserts execution records into tradehook.executions.
type ClickHouseJournal struct {
	client *clickhouse.Client
	table  string
}

const executionsSchema = `
CREATE TABLE IF NOT EXISTS %s (
    ticker     String,
    market     String,
    direction  LowCardinality(String),
    raw_value  String,
    order_id   String,
    amount_krw Int64,
    quantity   String,
    outcome    LowCardinality(String),
    error      String,
    ts         DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (market, ts)`

// NewClickHouseJournal ensures the executions table exists and returns the
// journal.
func NewClickHouseJournal(ctx context.Context, client *clickhouse.Client, table string) (*ClickHouseJournal, error) {
	if table == "" {
		table = "tradehook.executions"
	}
	if err := client.InitSchema(ctx, []string{fmt.Sprintf(executionsSchema, table)}); err != nil {
		return nil, err
	}
	return &ClickHouseJournal{client: client, table: table}, nil
}

func (j *ClickHouseJournal) Record(ctx context.Context, rec *models.ExecutionRecord) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(ticker, market, direction, raw_value, order_id, amount_krw, quantity, outcome, error, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, j.table)

	_, err := j.client.DB().ExecContext(ctx, query,
		rec.Ticker, rec.Market, string(rec.Direction), rec.RawValue,
		rec.OrderID, rec.AmountKRW, rec.Quantity, rec.Outcome, rec.Error, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

func (j *ClickHouseJournal) Close() error {
	return j.client.Close()
}
