package kafkarest

import (
	"fmt"

	json "github.com/goccy/go-json"
)

const ContentType = "application/vnd.kafka.v2+json"

type RecordFormat string

const (
	FormatJSON   RecordFormat = "json"
	FormatBinary RecordFormat = "binary"
)

// ContentType is the embedded format media type, e.g. application/vnd.kafka.json.v2+json
func (f RecordFormat) ContentType() string {
	return "application/vnd.kafka." + string(f) + ".v2+json"
}

func ParseRecordFormat(s string) (RecordFormat, error) {
	switch RecordFormat(s) {
	case FormatJSON, FormatBinary:
		return RecordFormat(s), nil
	}
	return "", fmt.Errorf("unknown record format %q", s)
}

type AutoOffsetReset string

const (
	OffsetResetEarliest AutoOffsetReset = "earliest"
	OffsetResetLatest   AutoOffsetReset = "latest"
)

type Consumer struct {
	Name             string          `json:"name,omitempty"`
	Format           RecordFormat    `json:"format" validate:"required,oneof=json binary"`
	AutoOffsetReset  AutoOffsetReset `json:"auto.offset.reset,omitempty" validate:"omitempty,oneof=earliest latest"`
	AutoCommitEnable string          `json:"auto.commit.enable,omitempty" validate:"omitempty,oneof=true false"`
}

type NewConsumer struct {
	InstanceId string `json:"instance_id"`
	BaseUri    string `json:"base_uri"`
}

// Record is a fetched record with its value still encoded, binary values are
// base64 JSON strings.
type Record struct {
	Topic     string          `json:"topic"`
	Key       json.RawMessage `json:"key,omitempty"`
	Value     json.RawMessage `json:"value"`
	Partition int             `json:"partition"`
	Offset    int64           `json:"offset"`
}

// TopicPartitionOffset is the position used for both commits and seeks
type TopicPartitionOffset struct {
	Topic     string `json:"topic" validate:"required"`
	Partition int    `json:"partition" validate:"min=0"`
	Offset    int64  `json:"offset" validate:"min=0"`
}

type offsetsBody struct {
	Offsets []TopicPartitionOffset `json:"offsets" validate:"required,min=1,dive"`
}

type subscriptionBody struct {
	Topics []string `json:"topics" validate:"required,min=1,dive,required"`
}

type ProduceRecord struct {
	Key       any  `json:"key,omitempty"`
	Value     any  `json:"value"`
	Partition *int `json:"partition,omitempty"`
}

type produceBody struct {
	Records []ProduceRecord `json:"records" validate:"required,min=1"`
}

type PartitionOffset struct {
	Partition int     `json:"partition"`
	Offset    int64   `json:"offset"`
	ErrorCode *int    `json:"error_code,omitempty"`
	Error     *string `json:"error,omitempty"`
}

type ProducedRecords struct {
	Offsets []PartitionOffset `json:"offsets"`
}
