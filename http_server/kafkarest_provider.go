package http_server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danthegoodman1/CloudConnect/kafkarest"
	"github.com/danthegoodman1/CloudConnect/storage"
	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
)

// KafkaConsumerState is one consumer instance of a group
type KafkaConsumerState struct {
	Group           string
	Instance        string
	Format          kafkarest.RecordFormat
	AutoOffsetReset kafkarest.AutoOffsetReset
	AutoCommit      bool
	Topics          []string
	// Positions is the next offset to fetch, keyed by topic/partition
	Positions map[string]int64
}

// KafkaStores holds the fake's state. Nil stores are kept in memory.
type KafkaStores struct {
	// Records is the log of each topic, keyed by topic
	Records storage.Storage[[]kafkarest.Record]
	// Consumers is keyed by group/instance
	Consumers storage.Storage[KafkaConsumerState]
	// Commits holds the last committed offset by topic/partition, keyed by group
	Commits storage.Storage[map[string]int64]
}

// FakeKafkaRest answers the Kafka REST proxy v2 consumer and produce API.
// A commit names the last processed record, so a new instance of the group
// starts after it.
type FakeKafkaRest struct {
	baseURL string
	stores  KafkaStores
}

func NewFakeKafkaRest(baseURL string, stores KafkaStores) *FakeKafkaRest {
	if stores.Records == nil {
		stores.Records = storage.NewInMemory[[]kafkarest.Record]()
	}
	if stores.Consumers == nil {
		stores.Consumers = storage.NewInMemory[KafkaConsumerState]()
	}
	if stores.Commits == nil {
		stores.Commits = storage.NewInMemory[map[string]int64]()
	}
	return &FakeKafkaRest{baseURL: baseURL, stores: stores}
}

func (p *FakeKafkaRest) ServiceName() string {
	return kafkarest.ServiceName
}

func (p *FakeKafkaRest) Register(e *echo.Echo) {
	e.POST("/consumers/:group", p.createConsumer)
	e.DELETE("/consumers/:group/instances/:instance", p.deleteConsumer)
	e.POST("/consumers/:group/instances/:instance/subscription", p.subscribe)
	e.GET("/consumers/:group/instances/:instance/records", p.records)
	e.POST("/consumers/:group/instances/:instance/records", p.records)
	e.POST("/consumers/:group/instances/:instance/offsets", p.commitOffsets)
	e.POST("/consumers/:group/instances/:instance/positions", p.seek)
	e.POST("/topics/:topic", p.produce)
}

type kafkaError struct {
	status    int
	errorCode int
	message   string
}

func (e *kafkaError) Error() string {
	return fmt.Sprintf("%d: %s", e.errorCode, e.message)
}

var (
	errConsumerNotFound = &kafkaError{http.StatusNotFound, 40403, "Consumer instance not found."}
	errConsumerExists   = &kafkaError{http.StatusConflict, 40902, "Consumer with specified consumer ID already exists in the specified consumer group."}
	errFormatMismatch   = &kafkaError{http.StatusNotAcceptable, 40601, "The requested embedded data format does not match the deserializer for this consumer instance"}
)

func unprocessable(message string) error {
	return &kafkaError{http.StatusUnprocessableEntity, 42206, message}
}

func writeKafkaError(c echo.Context, err error) error {
	var ke *kafkaError
	if !errors.As(err, &ke) {
		ae := asAPIError(c, err)
		ke = &kafkaError{ae.status, 50001, ae.message}
	}
	return writeJSON(c, ke.status, kafkarest.ContentType, map[string]any{
		"error_code": ke.errorCode,
		"message":    ke.message,
	})
}

func partitionKey(topic string, partition int) string {
	return topic + "/" + strconv.Itoa(partition)
}

func consumerKey(group, instance string) string {
	return group + "/" + instance
}

func (p *FakeKafkaRest) createConsumer(c echo.Context) error {
	group := c.Param("group")
	var in kafkarest.Consumer
	if err := readJSON(c, &in); err != nil {
		return writeKafkaError(c, err)
	}
	if in.Format == "" {
		in.Format = kafkarest.FormatBinary
	}
	if _, err := kafkarest.ParseRecordFormat(string(in.Format)); err != nil {
		return writeKafkaError(c, unprocessable(err.Error()))
	}
	if in.Name == "" {
		id, err := gonanoid.New()
		if err != nil {
			return writeKafkaError(c, err)
		}
		in.Name = "rest-consumer-" + id
	}

	_, err := p.stores.Consumers.Update(c.Request().Context(), consumerKey(group, in.Name), func(existing KafkaConsumerState, exists bool) (KafkaConsumerState, error) {
		if exists {
			return existing, errConsumerExists
		}
		return KafkaConsumerState{
			Group:           group,
			Instance:        in.Name,
			Format:          in.Format,
			AutoOffsetReset: lo.Ternary(in.AutoOffsetReset == "", kafkarest.OffsetResetLatest, in.AutoOffsetReset),
			AutoCommit:      in.AutoCommitEnable != "false",
			Positions:       map[string]int64{},
		}, nil
	})
	if err != nil {
		return writeKafkaError(c, err)
	}

	return writeJSON(c, http.StatusOK, kafkarest.ContentType, kafkarest.NewConsumer{
		InstanceId: in.Name,
		BaseUri:    p.baseURL + "/consumers/" + group + "/instances/" + in.Name,
	})
}

func (p *FakeKafkaRest) deleteConsumer(c echo.Context) error {
	removed, err := p.stores.Consumers.Remove(c.Request().Context(), consumerKey(c.Param("group"), c.Param("instance")))
	if err != nil {
		return writeKafkaError(c, err)
	}
	if !removed {
		return writeKafkaError(c, errConsumerNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// updateConsumer runs fn on an existing consumer instance
func (p *FakeKafkaRest) updateConsumer(c echo.Context, fn func(KafkaConsumerState) (KafkaConsumerState, error)) (KafkaConsumerState, error) {
	key := consumerKey(c.Param("group"), c.Param("instance"))
	return p.stores.Consumers.Update(c.Request().Context(), key, func(state KafkaConsumerState, exists bool) (KafkaConsumerState, error) {
		if !exists {
			return state, errConsumerNotFound
		}
		if state.Positions == nil {
			state.Positions = map[string]int64{}
		}
		return fn(state)
	})
}

// nextOffsets is one past the highest offset of every partition of topic
func (p *FakeKafkaRest) nextOffsets(ctx context.Context, topic string) (map[string]int64, error) {
	records, err := p.stores.Records.Get(ctx, topic)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	next := map[string]int64{}
	for _, r := range records {
		next[partitionKey(topic, r.Partition)] = r.Offset + 1
	}
	return next, nil
}

func (p *FakeKafkaRest) subscribe(c echo.Context) error {
	var in struct {
		Topics []string `json:"topics"`
	}
	if err := readJSON(c, &in); err != nil {
		return writeKafkaError(c, err)
	}
	if len(in.Topics) == 0 {
		return writeKafkaError(c, unprocessable("topics must not be empty"))
	}

	ctx := c.Request().Context()
	_, err := p.updateConsumer(c, func(state KafkaConsumerState) (KafkaConsumerState, error) {
		state.Topics = lo.Uniq(in.Topics)
		if state.AutoOffsetReset != kafkarest.OffsetResetLatest {
			return state, nil
		}
		committed, err := p.committed(ctx, state.Group)
		if err != nil {
			return state, err
		}
		for _, topic := range state.Topics {
			next, err := p.nextOffsets(ctx, topic)
			if err != nil {
				return state, err
			}
			for key, offset := range next {
				if _, ok := committed[key]; !ok {
					state.Positions[key] = offset
				}
			}
		}
		return state, nil
	})
	if err != nil {
		return writeKafkaError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (p *FakeKafkaRest) committed(ctx context.Context, group string) (map[string]int64, error) {
	committed, err := p.stores.Commits.Get(ctx, group)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]int64{}, nil
	}
	return committed, err
}

// records hands out everything past the instance's positions and moves them
func (p *FakeKafkaRest) records(c echo.Context) error {
	ctx := c.Request().Context()
	accept := c.Request().Header.Get("Accept")
	var fetched []kafkarest.Record

	state, err := p.updateConsumer(c, func(state KafkaConsumerState) (KafkaConsumerState, error) {
		if accept != "" && accept != kafkarest.ContentType && accept != state.Format.ContentType() {
			return state, errFormatMismatch
		}
		committed, err := p.committed(ctx, state.Group)
		if err != nil {
			return state, err
		}

		fetched = nil
		for _, topic := range state.Topics {
			records, err := p.stores.Records.Get(ctx, topic)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return state, err
			}
			for _, r := range records {
				key := partitionKey(topic, r.Partition)
				position, ok := state.Positions[key]
				if !ok {
					if last, wasCommitted := committed[key]; wasCommitted {
						position = last + 1
					}
				}
				if r.Offset >= position {
					fetched = append(fetched, r)
				}
			}
		}
		for _, r := range fetched {
			state.Positions[partitionKey(r.Topic, r.Partition)] = r.Offset + 1
		}
		return state, nil
	})
	if err != nil {
		return writeKafkaError(c, err)
	}

	if state.AutoCommit && len(fetched) > 0 {
		if err = p.commit(ctx, state.Group, lo.Map(fetched, func(r kafkarest.Record, _ int) kafkarest.TopicPartitionOffset {
			return kafkarest.TopicPartitionOffset{Topic: r.Topic, Partition: r.Partition, Offset: r.Offset}
		})); err != nil {
			return writeKafkaError(c, err)
		}
	}

	if fetched == nil {
		fetched = []kafkarest.Record{}
	}
	return writeJSON(c, http.StatusOK, state.Format.ContentType(), fetched)
}

type offsetsRequest struct {
	Offsets []kafkarest.TopicPartitionOffset `json:"offsets"`
}

func (p *FakeKafkaRest) commit(ctx context.Context, group string, offsets []kafkarest.TopicPartitionOffset) error {
	_, err := p.stores.Commits.Update(ctx, group, func(committed map[string]int64, _ bool) (map[string]int64, error) {
		next := lo.Assign(committed)
		for _, o := range offsets {
			next[partitionKey(o.Topic, o.Partition)] = o.Offset
		}
		return next, nil
	})
	return err
}

func (p *FakeKafkaRest) commitOffsets(c echo.Context) error {
	var in offsetsRequest
	if err := readJSON(c, &in); err != nil {
		return writeKafkaError(c, err)
	}
	state, err := p.stores.Consumers.Get(c.Request().Context(), consumerKey(c.Param("group"), c.Param("instance")))
	if errors.Is(err, storage.ErrNotFound) {
		return writeKafkaError(c, errConsumerNotFound)
	}
	if err != nil {
		return writeKafkaError(c, err)
	}
	if err = p.commit(c.Request().Context(), state.Group, in.Offsets); err != nil {
		return writeKafkaError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (p *FakeKafkaRest) seek(c echo.Context) error {
	var in offsetsRequest
	if err := readJSON(c, &in); err != nil {
		return writeKafkaError(c, err)
	}
	if len(in.Offsets) == 0 {
		return writeKafkaError(c, unprocessable("offsets must not be empty"))
	}
	_, err := p.updateConsumer(c, func(state KafkaConsumerState) (KafkaConsumerState, error) {
		for _, o := range in.Offsets {
			state.Positions[partitionKey(o.Topic, o.Partition)] = o.Offset
		}
		return state, nil
	})
	if err != nil {
		return writeKafkaError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type produceRequest struct {
	Records []struct {
		Key       json.RawMessage `json:"key"`
		Value     json.RawMessage `json:"value"`
		Partition *int            `json:"partition"`
	} `json:"records"`
}

func (p *FakeKafkaRest) produce(c echo.Context) error {
	topic := c.Param("topic")
	var in produceRequest
	if err := readJSON(c, &in); err != nil {
		return writeKafkaError(c, err)
	}
	if len(in.Records) == 0 {
		return writeKafkaError(c, unprocessable("records must not be empty"))
	}

	var out kafkarest.ProducedRecords
	_, err := p.stores.Records.Update(c.Request().Context(), topic, func(log []kafkarest.Record, _ bool) ([]kafkarest.Record, error) {
		next := map[int]int64{}
		for _, r := range log {
			next[r.Partition] = r.Offset + 1
		}
		out.Offsets = nil
		appended := append([]kafkarest.Record{}, log...)
		for _, rec := range in.Records {
			partition := lo.FromPtr(rec.Partition)
			r := kafkarest.Record{
				Topic:     topic,
				Key:       rec.Key,
				Value:     rec.Value,
				Partition: partition,
				Offset:    next[partition],
			}
			next[partition]++
			appended = append(appended, r)
			out.Offsets = append(out.Offsets, kafkarest.PartitionOffset{Partition: r.Partition, Offset: r.Offset})
		}
		return appended, nil
	})
	if err != nil {
		return writeKafkaError(c, err)
	}
	return writeJSON(c, http.StatusOK, kafkarest.ContentType, out)
}
