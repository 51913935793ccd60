package kafkarest

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

type fakeFetcher struct {
	mu        sync.Mutex
	batch     action.Result[[]Record]
	commits   []TopicPartitionOffset
	seeks     [][]TopicPartitionOffset
	failOn    int64
	commitErr *action.RemoteFailure
	seekErr   *action.RemoteFailure
}

func (f *fakeFetcher) ConsumeRecords(context.Context, string, string, RecordFormat) action.Result[[]Record] {
	return f.batch
}

func (f *fakeFetcher) CommitOffsets(_ context.Context, _, _ string, offsets ...TopicPartitionOffset) action.Result[action.Unit] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil && offsets[0].Offset == f.failOn {
		return action.Fail[action.Unit](f.commitErr)
	}
	f.commits = append(f.commits, offsets...)
	return action.Success(action.Unit{})
}

func (f *fakeFetcher) SeekOffsets(_ context.Context, _, _ string, offsets ...TopicPartitionOffset) action.Result[action.Unit] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, offsets)
	if f.seekErr != nil {
		return action.Fail[action.Unit](f.seekErr)
	}
	return action.Success(action.Unit{})
}

type event struct {
	ID int `json:"id"`
}

func jsonRecord(topic string, partition int, offset int64, id int) Record {
	return Record{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Value:     []byte(`{"id":` + strconv.Itoa(id) + `}`),
	}
}

func batchOf(records ...Record) action.Result[[]Record] {
	return action.Success(records)
}

var errBoom = errors.New("processing blew up")

func failAt(offset int64, seen *[]int64) RecordConsumer[event] {
	return func(_ context.Context, r Received[event]) error {
		*seen = append(*seen, r.Offset)
		if r.Offset == offset {
			return errBoom
		}
		return nil
	}
}

func TestFailureOnThirdRecordCommitsTwoAndSeeksBack(t *testing.T) {
	f := &fakeFetcher{batch: batchOf(
		jsonRecord("t", 0, 100, 1),
		jsonRecord("t", 0, 101, 2),
		jsonRecord("t", 0, 102, 3),
	)}
	var seen []int64

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, failAt(102, &seen))

	require.False(t, result.IsSuccess())
	assert.Equal(t, action.KindProcessing, result.Failure().Kind)
	assert.ErrorIs(t, result.Failure(), errBoom)

	assert.Equal(t, []TopicPartitionOffset{{"t", 0, 100}, {"t", 0, 101}}, f.commits)
	assert.Equal(t, [][]TopicPartitionOffset{{{"t", 0, 102}}}, f.seeks)
	assert.Equal(t, []int64{100, 101, 102}, seen)
}

func TestCompensationInvariant(t *testing.T) {
	const n = 5
	for k := 0; k <= n; k++ {
		t.Run("fail at "+strconv.Itoa(k), func(t *testing.T) {
			records := make([]Record, n)
			for i := range records {
				records[i] = jsonRecord("t", 0, int64(i), i)
			}
			f := &fakeFetcher{batch: batchOf(records...)}
			var seen []int64

			result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, failAt(int64(k), &seen))

			assert.Len(t, f.commits, k)
			for _, c := range f.commits {
				assert.Less(t, c.Offset, int64(k), "no commit at or after the failing record")
			}
			if k == n {
				require.True(t, result.IsSuccess())
				assert.Equal(t, n, result.Value())
				assert.Empty(t, f.seeks)
				return
			}
			require.False(t, result.IsSuccess())
			require.Len(t, f.seeks, 1)
			assert.Equal(t, []TopicPartitionOffset{{"t", 0, int64(k)}}, f.seeks[0])
			assert.Len(t, seen, k+1, "processing stops at the failing record")
		})
	}
}

func TestMultiPartitionRewind(t *testing.T) {
	f := &fakeFetcher{batch: batchOf(
		jsonRecord("t", 0, 1, 1),
		jsonRecord("t", 1, 5, 2),
		jsonRecord("t", 0, 2, 3),
		jsonRecord("t", 1, 6, 4),
		jsonRecord("t", 2, 9, 5),
		jsonRecord("t", 0, 3, 6),
	)}
	var seen []int64

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, failAt(2, &seen))
	require.False(t, result.IsSuccess())

	assert.Equal(t, []TopicPartitionOffset{{"t", 0, 1}, {"t", 1, 5}}, f.commits)
	assert.Equal(t, [][]TopicPartitionOffset{{{"t", 0, 2}, {"t", 1, 6}, {"t", 2, 9}}}, f.seeks)
}

func TestWrongRecordTypeFailsWholeBatch(t *testing.T) {
	f := &fakeFetcher{batch: batchOf(
		jsonRecord("t", 0, 7, 1),
		jsonRecord("t", 1, 3, 2),
		Record{Topic: "t", Partition: 0, Offset: 8, Value: []byte(`"not an event"`)},
	)}
	called := false

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, func(context.Context, Received[event]) error {
		called = true
		return nil
	})

	require.False(t, result.IsSuccess())
	assert.Equal(t, action.KindDecode, result.Failure().Kind)
	assert.ErrorIs(t, result.Failure(), ErrWrongRecordType)
	assert.False(t, called)
	assert.Empty(t, f.commits)
	assert.Equal(t, [][]TopicPartitionOffset{{{"t", 0, 7}, {"t", 1, 3}}}, f.seeks)
}

func TestCommitFailureRewindsToThatRecord(t *testing.T) {
	rejected := &action.RemoteFailure{Kind: action.KindRemote, Code: "40403", Status: http.StatusNotFound, Message: "Consumer instance not found."}
	f := &fakeFetcher{
		batch:     batchOf(jsonRecord("t", 0, 1, 1), jsonRecord("t", 0, 2, 2), jsonRecord("t", 0, 3, 3)),
		failOn:    2,
		commitErr: rejected,
	}
	var seen []int64

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, failAt(-1, &seen))

	require.False(t, result.IsSuccess())
	assert.Same(t, rejected, result.Failure())
	assert.Equal(t, []TopicPartitionOffset{{"t", 0, 1}}, f.commits)
	assert.Equal(t, [][]TopicPartitionOffset{{{"t", 0, 2}}}, f.seeks)
	assert.Equal(t, []int64{1, 2}, seen)
}

func TestFailedSeekStillReturnsOriginalFailure(t *testing.T) {
	f := &fakeFetcher{
		batch:   batchOf(jsonRecord("t", 0, 1, 1)),
		seekErr: action.TransportFailure(errors.New("connection reset")),
	}
	scope := tally.NewTestScope("", nil)
	var seen []int64

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, failAt(1, &seen), WithScope(scope))

	require.False(t, result.IsSuccess())
	assert.ErrorIs(t, result.Failure(), errBoom)
	assert.Equal(t, int64(1), counter(scope, "seek_failures"))
}

func TestFetchFailureProcessesNothing(t *testing.T) {
	f := &fakeFetcher{batch: action.Fail[[]Record](action.TransportFailure(errors.New("refused")))}

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, func(context.Context, Received[event]) error {
		t.Fatal("nothing was fetched")
		return nil
	})

	require.False(t, result.IsSuccess())
	assert.Equal(t, action.KindTransport, result.Failure().Kind)
	assert.Empty(t, f.commits)
	assert.Empty(t, f.seeks)
}

func TestPanickingConsumerIsRewound(t *testing.T) {
	f := &fakeFetcher{batch: batchOf(jsonRecord("t", 0, 4, 1), jsonRecord("t", 0, 5, 2))}

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, func(_ context.Context, r Received[event]) error {
		if r.Offset == 5 {
			panic("nil map")
		}
		return nil
	})

	require.False(t, result.IsSuccess())
	assert.Equal(t, action.KindProcessing, result.Failure().Kind)
	assert.Equal(t, [][]TopicPartitionOffset{{{"t", 0, 5}}}, f.seeks)
}

func TestCancelledContextStopsAndRewinds(t *testing.T) {
	f := &fakeFetcher{batch: batchOf(jsonRecord("t", 0, 1, 1), jsonRecord("t", 0, 2, 2))}
	ctx, cancel := context.WithCancel(context.Background())

	result := ConsumeAndCommitRecords(ctx, f, "g", "i", "t", FormatJSON, func(context.Context, Received[event]) error {
		cancel()
		return nil
	})

	require.False(t, result.IsSuccess())
	assert.ErrorIs(t, result.Failure(), context.Canceled)
	assert.Equal(t, []TopicPartitionOffset{{"t", 0, 1}}, f.commits)
	assert.Equal(t, [][]TopicPartitionOffset{{{"t", 0, 2}}}, f.seeks)
}

func TestBinaryRecordsAndMetrics(t *testing.T) {
	f := &fakeFetcher{batch: batchOf(
		Record{Partition: 0, Offset: 0, Value: []byte(`"` + base64.StdEncoding.EncodeToString([]byte("raw bytes")) + `"`)},
	)}
	scope := tally.NewTestScope("", nil)
	var got []byte

	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatBinary, func(_ context.Context, r Received[[]byte]) error {
		got = r.Value
		assert.Equal(t, "t", r.Topic, "the topic is filled in when the proxy leaves it out")
		return nil
	}, WithScope(scope))

	require.True(t, result.IsSuccess())
	assert.Equal(t, "raw bytes", string(got))
	assert.Equal(t, []TopicPartitionOffset{{"t", 0, 0}}, f.commits)
	assert.Equal(t, int64(1), counter(scope, "commits"))
	assert.Equal(t, int64(1), counter(scope, "records_processed"))
}

func TestEmptyBatch(t *testing.T) {
	f := &fakeFetcher{batch: batchOf()}
	result := ConsumeAndCommitRecords(context.Background(), f, "g", "i", "t", FormatJSON, func(context.Context, Received[event]) error {
		return nil
	})
	require.True(t, result.IsSuccess())
	assert.Equal(t, 0, result.Value())
	assert.Empty(t, f.seeks)
}

func counter(scope tally.TestScope, name string) int64 {
	var total int64
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name {
			total += c.Value()
		}
	}
	return total
}
