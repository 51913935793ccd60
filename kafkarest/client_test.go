package kafkarest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exchange struct {
	method, path, query, body, accept, contentType, user, password string
}

type proxyStub struct {
	exchanges []exchange
	responses map[string]string
}

func (p *proxyStub) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	user, password, _ := req.BasicAuth()
	p.exchanges = append(p.exchanges, exchange{
		method:      req.Method,
		path:        req.URL.Path,
		query:       req.URL.RawQuery,
		body:        string(body),
		accept:      req.Header.Get("Accept"),
		contentType: req.Header.Get("Content-Type"),
		user:        user,
		password:    password,
	})
	status, respBody := http.StatusNoContent, ""
	if r, ok := p.responses[req.Method+" "+req.URL.Path]; ok {
		status, respBody = http.StatusOK, r
	}
	return &http.Response{StatusCode: status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(respBody))}, nil
}

func newStubClient(t *testing.T, stub *proxyStub) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: "http://proxy.local:8082", User: "user", Password: "pw", Transport: stub})
	require.NoError(t, err)
	return c
}

func TestConsumerLifecycleRequests(t *testing.T) {
	stub := &proxyStub{responses: map[string]string{
		"POST /consumers/group": `{"instance_id":"groupconsumer-1","base_uri":"http://proxy.local:8082/consumers/group/instances/groupconsumer-1"}`,
	}}
	c := newStubClient(t, stub)
	ctx := context.Background()

	created := c.CreateConsumer(ctx, "group", Consumer{Name: "consumer-1", Format: FormatJSON, AutoOffsetReset: OffsetResetEarliest, AutoCommitEnable: "false"})
	require.True(t, created.IsSuccess(), "%v", created.Failure())
	assert.Equal(t, "groupconsumer-1", created.Value().InstanceId)

	require.True(t, c.SubscribeToTopics(ctx, "group", "groupconsumer-1", "t").IsSuccess())
	require.True(t, c.CommitOffsets(ctx, "group", "groupconsumer-1", TopicPartitionOffset{"t", 0, 5}).IsSuccess())
	require.True(t, c.SeekOffsets(ctx, "group", "groupconsumer-1", TopicPartitionOffset{"t", 0, 3}).IsSuccess())
	require.True(t, c.DeleteConsumer(ctx, "group", "groupconsumer-1").IsSuccess())

	require.Len(t, stub.exchanges, 5)
	assert.Equal(t, exchange{
		method: http.MethodPost, path: "/consumers/group",
		body:   `{"name":"consumer-1","format":"json","auto.offset.reset":"earliest","auto.commit.enable":"false"}`,
		accept: ContentType, contentType: ContentType, user: "user", password: "pw",
	}, stub.exchanges[0])
	assert.Equal(t, "/consumers/group/instances/groupconsumer-1/subscription", stub.exchanges[1].path)
	assert.Equal(t, `{"topics":["t"]}`, stub.exchanges[1].body)
	assert.Equal(t, "/consumers/group/instances/groupconsumer-1/offsets", stub.exchanges[2].path)
	assert.Equal(t, `{"offsets":[{"topic":"t","partition":0,"offset":5}]}`, stub.exchanges[2].body)
	assert.Equal(t, "/consumers/group/instances/groupconsumer-1/positions", stub.exchanges[3].path)
	assert.Equal(t, http.MethodDelete, stub.exchanges[4].method)
}

func TestConsumeRecordsAsksForTheFormat(t *testing.T) {
	stub := &proxyStub{responses: map[string]string{
		"POST /consumers/g/instances/i/records": `[{"topic":"t","key":null,"value":{"id":1},"partition":0,"offset":0}]`,
	}}
	c := newStubClient(t, stub)

	result := c.ConsumeRecords(context.Background(), "g", "i", FormatJSON)
	require.True(t, result.IsSuccess(), "%v", result.Failure())
	require.Len(t, result.Value(), 1)
	assert.JSONEq(t, `{"id":1}`, string(result.Value()[0].Value))
	assert.Equal(t, FormatJSON.ContentType(), stub.exchanges[0].accept)

	req, err := ConsumeRecords{Group: "g", Instance: "i", Format: FormatBinary, TimeoutMs: 100, MaxBytes: 1024}.ToRequest()
	require.NoError(t, err)
	assert.Equal(t, "max_bytes=1024&timeout=100", req.URL.RawQuery)
}

func TestConsumeAndCommitThroughTheClient(t *testing.T) {
	stub := &proxyStub{responses: map[string]string{
		"POST /consumers/g/instances/i/records": `[
			{"topic":"t","value":{"id":1},"partition":0,"offset":0},
			{"topic":"t","value":{"id":2},"partition":0,"offset":1},
			{"topic":"t","value":{"id":3},"partition":0,"offset":2}]`,
	}}
	c := newStubClient(t, stub)

	result := ConsumeAndCommitRecords(context.Background(), c, "g", "i", "t", FormatJSON, func(_ context.Context, r Received[event]) error {
		if r.Value.ID == 3 {
			return errBoom
		}
		return nil
	})
	require.False(t, result.IsSuccess())

	paths := make([]string, 0, len(stub.exchanges))
	for _, e := range stub.exchanges {
		paths = append(paths, e.path)
	}
	assert.Equal(t, []string{
		"/consumers/g/instances/i/records",
		"/consumers/g/instances/i/offsets",
		"/consumers/g/instances/i/offsets",
		"/consumers/g/instances/i/positions",
	}, paths)
	assert.Equal(t, `{"offsets":[{"topic":"t","partition":0,"offset":2}]}`, stub.exchanges[3].body)
}

func TestProduceRecords(t *testing.T) {
	stub := &proxyStub{responses: map[string]string{
		"POST /topics/t": `{"offsets":[{"partition":0,"offset":42}]}`,
	}}
	c := newStubClient(t, stub)

	result := c.ProduceRecords(context.Background(), "t", FormatBinary, ProduceRecord{Value: []byte("hi")})
	require.True(t, result.IsSuccess(), "%v", result.Failure())
	assert.Equal(t, int64(42), result.Value().Offsets[0].Offset)
	assert.Equal(t, `{"records":[{"value":"aGk="}]}`, stub.exchanges[0].body)
	assert.Equal(t, FormatBinary.ContentType(), stub.exchanges[0].contentType)
}

func TestProxyErrorCode(t *testing.T) {
	c, err := New(Config{BaseURL: "http://proxy.local", Transport: client.TransportFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"error_code":40403,"message":"Consumer instance not found."}`)),
		}, nil
	})})
	require.NoError(t, err)

	result := c.CommitOffsets(context.Background(), "g", "i", TopicPartitionOffset{"t", 0, 1})
	require.False(t, result.IsSuccess())
	assert.Equal(t, action.KindRemote, result.Failure().Kind)
	assert.Equal(t, "40403", result.Failure().Code)
	assert.Equal(t, "Consumer instance not found.", result.Failure().Message)
}

func TestActionValidation(t *testing.T) {
	_, err := CommitOffsets{Group: "g", Instance: "i"}.ToRequest()
	assert.Error(t, err, "at least one offset")

	_, err = SubscribeToTopics{Group: "g", Instance: "i", Topics: []string{""}}.ToRequest()
	assert.Error(t, err)

	_, err = CreateConsumer{Group: "g", Consumer: Consumer{Format: "avro"}}.ToRequest()
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://proxy.local", User: "user"})
	assert.Error(t, err, "a user needs a password")
}

func TestNewConsumerConfig(t *testing.T) {
	a, err := NewConsumerConfig(FormatJSON)
	require.NoError(t, err)
	b, err := NewConsumerConfig(FormatJSON)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Name, "consumer-"))
	assert.NotEqual(t, a.Name, b.Name)
	assert.Equal(t, "false", a.AutoCommitEnable)
}
