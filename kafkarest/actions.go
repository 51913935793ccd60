// Package kafkarest is a client for the Confluent Kafka REST proxy (v2 API)
// and the compensating consume-and-commit loop built on it.
package kafkarest

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/danthegoodman1/CloudConnect/action"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

func instancePath(group, instance, suffix string) string {
	return "/consumers/" + url.PathEscape(group) + "/instances/" + url.PathEscape(instance) + suffix
}

func jsonRequest(method, path string, body any) (*http.Request, error) {
	if body == nil {
		req, err := action.NewRequest(method, path, nil, "")
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", ContentType)
		return req, nil
	}
	if err := action.Validate(body); err != nil {
		return nil, err
	}
	encoded, err := action.Marshal(body)
	if err != nil {
		return nil, err
	}
	return action.NewRequest(method, path, encoded, ContentType)
}

// NewConsumerConfig names a consumer instance with a random id, auto commit
// off so offsets only move through CommitOffsets.
func NewConsumerConfig(format RecordFormat) (Consumer, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Consumer{}, err
	}
	return Consumer{
		Name:             "consumer-" + id,
		Format:           format,
		AutoOffsetReset:  OffsetResetEarliest,
		AutoCommitEnable: "false",
	}, nil
}

type CreateConsumer struct {
	Group    string `validate:"required"`
	Consumer Consumer
}

func (a CreateConsumer) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return jsonRequest(http.MethodPost, "/consumers/"+url.PathEscape(a.Group), a.Consumer)
}

func (a CreateConsumer) ToResult(resp *http.Response) action.Result[NewConsumer] {
	return action.DecodeJSON[NewConsumer](resp)
}

type DeleteConsumer struct {
	Group    string `validate:"required"`
	Instance string `validate:"required"`
}

func (a DeleteConsumer) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return jsonRequest(http.MethodDelete, instancePath(a.Group, a.Instance, ""), nil)
}

func (a DeleteConsumer) ToResult(resp *http.Response) action.Result[action.Unit] {
	return action.DecodeEmpty(resp)
}

type SubscribeToTopics struct {
	Group    string `validate:"required"`
	Instance string `validate:"required"`
	Topics   []string
}

func (a SubscribeToTopics) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return jsonRequest(http.MethodPost, instancePath(a.Group, a.Instance, "/subscription"), subscriptionBody{Topics: a.Topics})
}

func (a SubscribeToTopics) ToResult(resp *http.Response) action.Result[action.Unit] {
	return action.DecodeEmpty(resp)
}

// ConsumeRecords fetches the next batch for a consumer instance
type ConsumeRecords struct {
	Group    string       `validate:"required"`
	Instance string       `validate:"required"`
	Format   RecordFormat `validate:"required,oneof=json binary"`
	// TimeoutMs and MaxBytes are left to the proxy defaults when 0
	TimeoutMs int
	MaxBytes  int
}

func (a ConsumeRecords) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	q := url.Values{}
	if a.TimeoutMs > 0 {
		q.Set("timeout", strconv.Itoa(a.TimeoutMs))
	}
	if a.MaxBytes > 0 {
		q.Set("max_bytes", strconv.Itoa(a.MaxBytes))
	}
	path := instancePath(a.Group, a.Instance, "/records")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	req, err := jsonRequest(http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", a.Format.ContentType())
	return req, nil
}

func (a ConsumeRecords) ToResult(resp *http.Response) action.Result[[]Record] {
	return action.DecodeJSON[[]Record](resp)
}

type CommitOffsets struct {
	Group    string `validate:"required"`
	Instance string `validate:"required"`
	Offsets  []TopicPartitionOffset
}

func (a CommitOffsets) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return jsonRequest(http.MethodPost, instancePath(a.Group, a.Instance, "/offsets"), offsetsBody{Offsets: a.Offsets})
}

func (a CommitOffsets) ToResult(resp *http.Response) action.Result[action.Unit] {
	return action.DecodeEmpty(resp)
}

// SeekOffsets moves the fetch position of a consumer instance, the next
// ConsumeRecords starts at the given offsets.
type SeekOffsets struct {
	Group    string `validate:"required"`
	Instance string `validate:"required"`
	Offsets  []TopicPartitionOffset
}

func (a SeekOffsets) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return jsonRequest(http.MethodPost, instancePath(a.Group, a.Instance, "/positions"), offsetsBody{Offsets: a.Offsets})
}

func (a SeekOffsets) ToResult(resp *http.Response) action.Result[action.Unit] {
	return action.DecodeEmpty(resp)
}

type ProduceRecords struct {
	Topic   string       `validate:"required"`
	Format  RecordFormat `validate:"required,oneof=json binary"`
	Records []ProduceRecord
}

func (a ProduceRecords) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	body := produceBody{Records: a.Records}
	if err := action.Validate(body); err != nil {
		return nil, err
	}
	encoded, err := action.Marshal(body)
	if err != nil {
		return nil, err
	}
	return action.NewRequest(http.MethodPost, "/topics/"+url.PathEscape(a.Topic), encoded, a.Format.ContentType())
}

func (a ProduceRecords) ToResult(resp *http.Response) action.Result[ProducedRecords] {
	return action.DecodeJSON[ProducedRecords](resp)
}
