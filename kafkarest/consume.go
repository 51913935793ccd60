package kafkarest

import (
	"context"
	"errors"
	"fmt"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/gologger"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/uber-go/tally/v4"
)

var (
	logger = gologger.NewLogger()

	ErrWrongRecordType = errors.New("wrong type of record")
)

// Received is a fetched record with its value decoded
type Received[T any] struct {
	Topic     string
	Partition int
	Offset    int64
	Key       json.RawMessage
	Value     T
}

// RecordConsumer processes one record. Returning an error stops the batch and
// rewinds the consumer to this record, so it must tolerate seeing a record
// more than once.
type RecordConsumer[T any] func(ctx context.Context, record Received[T]) error

// Fetcher is the part of the proxy API the consume loop needs. *Client
// implements it.
type Fetcher interface {
	ConsumeRecords(ctx context.Context, group, instance string, format RecordFormat) action.Result[[]Record]
	CommitOffsets(ctx context.Context, group, instance string, offsets ...TopicPartitionOffset) action.Result[action.Unit]
	SeekOffsets(ctx context.Context, group, instance string, offsets ...TopicPartitionOffset) action.Result[action.Unit]
}

type consumeOptions struct {
	scope tally.Scope
}

type ConsumeOption func(*consumeOptions)

// WithScope reports records, commits, seeks and failures on scope
func WithScope(scope tally.Scope) ConsumeOption {
	return func(o *consumeOptions) {
		o.scope = scope
	}
}

// ConsumeAndCommitRecords fetches one batch and hands it to recordConsumer in
// fetch order, committing each record as soon as it has been processed. On the
// first failure, of the consumer or of a commit, it seeks back to the failing
// record so the next fetch redelivers it, and returns that failure. A record
// whose value does not decode into T fails the whole batch before anything is
// processed, and every fetched partition is rewound.
//
// The committed offsets live in the proxy only, nothing is remembered between
// calls. On success the result is the number of records committed.
func ConsumeAndCommitRecords[T any](ctx context.Context, f Fetcher, group, instance, topic string, format RecordFormat, recordConsumer RecordConsumer[T], opts ...ConsumeOption) action.Result[int] {
	o := &consumeOptions{scope: tally.NoopScope}
	for _, opt := range opts {
		opt(o)
	}
	scope := o.scope.Tagged(map[string]string{"group": group, "topic": topic})
	l := logger.With().Str("group", group).Str("instance", instance).Str("topic", topic).Logger()

	fetched := f.ConsumeRecords(ctx, group, instance, format)
	if !fetched.IsSuccess() {
		scope.Counter("fetch_failures").Inc(1)
		return action.Fail[int](fetched.Failure())
	}
	records := lo.Map(fetched.Value(), func(r Record, _ int) Record {
		if r.Topic == "" {
			r.Topic = topic
		}
		return r
	})
	scope.Counter("records_fetched").Inc(int64(len(records)))

	batch, err := decodeBatch[T](records)
	if err != nil {
		scope.Counter("decode_failures").Inc(1)
		l.Warn().Err(err).Int("records", len(records)).Msg("rewinding batch with undecodable record")
		seek(ctx, f, group, instance, firstOffsets(records), scope, l)
		return action.Fail[int](action.DecodeFailure(0, nil, err))
	}

	for i, record := range batch {
		// processed: the tentative effect
		if err := processRecord(ctx, recordConsumer, record); err != nil {
			scope.Counter("processing_failures").Inc(1)
			l.Warn().Err(err).Int("partition", record.Partition).Int64("offset", record.Offset).Msg("record failed, rewinding")
			seek(ctx, f, group, instance, rewindPositions(records, i), scope, l)
			return action.Fail[int](action.ProcessingFailure(err))
		}
		scope.Counter("records_processed").Inc(1)

		// committing: make it durable before touching the next record
		position := TopicPartitionOffset{Topic: record.Topic, Partition: record.Partition, Offset: record.Offset}
		committed := f.CommitOffsets(ctx, group, instance, position)
		if !committed.IsSuccess() {
			scope.Counter("commit_failures").Inc(1)
			l.Warn().Err(committed.Failure()).Int("partition", record.Partition).Int64("offset", record.Offset).Msg("commit failed, rewinding")
			seek(ctx, f, group, instance, rewindPositions(records, i), scope, l)
			return action.Fail[int](committed.Failure())
		}
		scope.Counter("commits").Inc(1)
		l.Debug().Int("partition", record.Partition).Int64("offset", record.Offset).Msg("committed")
	}

	return action.Success(len(batch))
}

func decodeBatch[T any](records []Record) ([]Received[T], error) {
	batch := make([]Received[T], 0, len(records))
	for _, r := range records {
		var value T
		if err := json.Unmarshal(r.Value, &value); err != nil {
			return nil, fmt.Errorf("%w: %s/%d@%d: %v", ErrWrongRecordType, r.Topic, r.Partition, r.Offset, err)
		}
		batch = append(batch, Received[T]{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Key:       r.Key,
			Value:     value,
		})
	}
	return batch, nil
}

// processRecord turns a panicking consumer into a failure, so the batch is
// still rewound.
func processRecord[T any](ctx context.Context, recordConsumer RecordConsumer[T], record Received[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("record consumer panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return recordConsumer(ctx, record)
}

type partitionKey struct {
	topic     string
	partition int
}

func keyOf(r Record) partitionKey {
	return partitionKey{r.Topic, r.Partition}
}

func positionOf(r Record) TopicPartitionOffset {
	return TopicPartitionOffset{Topic: r.Topic, Partition: r.Partition, Offset: r.Offset}
}

// firstOffsets is the first fetched offset of every partition in the batch
func firstOffsets(records []Record) []TopicPartitionOffset {
	return lo.Map(lo.UniqBy(records, keyOf), func(r Record, _ int) TopicPartitionOffset {
		return positionOf(r)
	})
}

// rewindPositions puts the failing record's partition back at the failing
// offset, and every other partition at its first record that was not
// processed yet.
func rewindPositions(records []Record, failed int) []TopicPartitionOffset {
	failedKey := keyOf(records[failed])
	positions := []TopicPartitionOffset{positionOf(records[failed])}
	rest := lo.Filter(records[failed+1:], func(r Record, _ int) bool {
		return keyOf(r) != failedKey
	})
	return append(positions, firstOffsets(rest)...)
}

// seek is the compensating step. It runs even if ctx is already cancelled, a
// failed seek is logged and counted but the caller still gets the original
// failure.
func seek(ctx context.Context, f Fetcher, group, instance string, positions []TopicPartitionOffset, scope tally.Scope, l zerolog.Logger) {
	if len(positions) == 0 {
		return
	}
	result := f.SeekOffsets(context.WithoutCancel(ctx), group, instance, positions...)
	if !result.IsSuccess() {
		scope.Counter("seek_failures").Inc(1)
		l.Error().Err(result.Failure()).Interface("positions", positions).Msg("seek failed, the next fetch may skip records")
		return
	}
	scope.Counter("seeks").Inc(1)
	l.Warn().Interface("positions", positions).Msg("seeked back")
}
