package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsql/internal/binding"
	"rxsql/internal/reactive"
)

func record(values ...any) binding.Record {
	fields := []binding.Field{
		{Name: "id", TypeName: "BIGINT"},
		{Name: "name", TypeName: "VARCHAR"},
	}
	r := binding.NewRecord(fields)
	for i, v := range values {
		r.Set(i, v)
	}
	return r
}

// recordPublisher emits fixed records honoring demand.
type recordPublisher struct {
	records []binding.Record
	err     error
}

func (p *recordPublisher) Subscribe(s reactive.Subscriber[binding.Record]) {
	s.OnSubscribe(&recordSubscription{pub: p, downstream: s})
}

type recordSubscription struct {
	pub        *recordPublisher
	downstream reactive.Subscriber[binding.Record]
	idx        int
	demand     int64
	emitting   bool
	done       bool
}

func (s *recordSubscription) Request(n int64) {
	s.demand += n
	if s.emitting || s.done {
		return
	}
	s.emitting = true
	for s.demand > 0 && s.idx < len(s.pub.records) && !s.done {
		s.demand--
		v := s.pub.records[s.idx]
		s.idx++
		s.downstream.OnNext(v)
	}
	s.emitting = false
	if s.idx == len(s.pub.records) && !s.done {
		s.done = true
		if s.pub.err != nil {
			s.downstream.OnError(s.pub.err)
		} else {
			s.downstream.OnComplete()
		}
	}
}

func (s *recordSubscription) Cancel() { s.done = true }

func TestCSVEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"id", "name"}))
	require.NoError(t, enc.WriteRecord(record(int64(1), "alice")))
	require.NoError(t, enc.WriteRecord(record(int64(2), nil)))
	require.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name", lines[0])
	assert.Equal(t, "1,alice", lines[1])
	assert.Equal(t, "2,NULL", lines[2])
}

func TestCSVEncoderFormulaInjection(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"id", "name"}))
	require.NoError(t, enc.WriteRecord(record(int64(1), "=SUM(A1)")))
	require.NoError(t, enc.Close())

	assert.Contains(t, buf.String(), "'=SUM(A1)")
}

func TestCSVEncoderTimeFormatting(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	at := time.Date(2024, time.March, 9, 13, 30, 5, 0, time.UTC)
	require.NoError(t, enc.WriteHeader([]string{"id", "name"}))
	require.NoError(t, enc.WriteRecord(record(int64(1), at)))
	require.NoError(t, enc.Close())

	assert.Contains(t, buf.String(), "2024-03-09 13:30:05")
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewJSONEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"id", "name"}))
	require.NoError(t, enc.WriteRecord(record(int64(1), []byte("bob"))))
	require.NoError(t, enc.Close())

	assert.JSONEq(t, `{"id":1,"name":"bob"}`, strings.TrimSpace(buf.String()))
}

func TestRunDrivesPublisherToCompletion(t *testing.T) {
	records := make([]binding.Record, 1200)
	for i := range records {
		records[i] = record(int64(i), "r")
	}

	var buf bytes.Buffer
	res, err := Run(context.Background(), &recordPublisher{records: records}, NewCSVEncoder(&buf), 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1200, res.Rows)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1201, "header plus one line per record")
}

func TestRunPropagatesError(t *testing.T) {
	boom := errors.New("stream broke")
	pub := &recordPublisher{records: []binding.Record{record(int64(1), "a")}, err: boom}

	var buf bytes.Buffer
	_, err := Run(context.Background(), pub, NewCSVEncoder(&buf), 10)
	assert.ErrorIs(t, err, boom)
}

func TestRunEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	res, err := Run(context.Background(), &recordPublisher{}, NewCSVEncoder(&buf), 10)
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.Empty(t, buf.String(), "no header without a first record")
}
