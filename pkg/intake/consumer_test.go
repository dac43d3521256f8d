package intake_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/intake"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/requestid"
	"github.com/docmatch/notifier/pkg/targeting"
	"github.com/docmatch/notifier/pkg/validator"
	"github.com/docmatch/notifier/svc/notify"
)

// fakeReader serves queued messages, then returns io.EOF.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeSender struct {
	mu       sync.Mutex
	requests []notify.BulkSendRequest
	ids      []string
	err      error
}

func (s *fakeSender) Send(ctx context.Context, source string, req notify.BulkSendRequest) (notify.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source != notify.SourceIntake {
		return notify.Result{}, errors.New("unexpected source " + source)
	}
	s.requests = append(s.requests, req)
	s.ids = append(s.ids, requestid.FromContext(ctx))
	if s.err != nil {
		return notify.Result{}, s.err
	}
	return notify.Result{Created: len(req.UserIDs)}, nil
}

func newConsumer(r intake.Reader, s intake.Sender, m *metrics.Metrics) *intake.Consumer {
	return intake.NewConsumer(r, s,
		intake.WithLogger(logger.Discard()),
		intake.WithMetrics(m),
		intake.WithBackoff(time.Millisecond, 2*time.Millisecond),
	)
}

func TestConsumer_RunProcessesAndCommitsEverything(t *testing.T) {
	reader := &fakeReader{
		fetchErrs: []error{errors.New("broker unavailable")},
		messages: []kafka.Message{
			{Offset: 1, Value: []byte(`{"title":"Job posted","message":"ICU","user_ids":[4,5]}`),
				Headers: []kafka.Header{{Key: requestid.Header, Value: []byte("job-service-1")}}},
			{Offset: 2, Value: []byte(`{not json`)},
			{Offset: 3, Value: []byte(`{"title":"Approved","message":"Welcome","role":"hospital"}`)},
		},
	}
	sender := &fakeSender{}
	m := metrics.New(prometheus.NewRegistry())

	err := newConsumer(reader, sender, m).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, reader.closed)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)

	require.Len(t, sender.requests, 2)
	assert.Equal(t, []int64{4, 5}, sender.requests[0].UserIDs)
	assert.Equal(t, "hospital", sender.requests[1].Role)
	assert.Equal(t, []string{"job-service-1", ""}, sender.ids)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.IntakeMessages.WithLabelValues(intake.ResultSent)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IntakeMessages.WithLabelValues(intake.ResultMalformed)))
}

func TestConsumer_HandleClassifiesFailures(t *testing.T) {
	validationErr := validator.Apply(validator.Required("title", ""))

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"sent", nil, intake.ResultSent},
		{"missing target", targeting.ErrMissingTarget, intake.ResultRejected},
		{"unknown role", targeting.ErrUnknownRole, intake.ResultRejected},
		{"validation", validationErr, intake.ResultRejected},
		{"storage", errors.New("connection refused"), intake.ResultFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			c := newConsumer(&fakeReader{}, &fakeSender{err: tt.err}, m)

			got := c.Handle(context.Background(), kafka.Message{Value: []byte(`{"title":"t","message":"m","role":"all"}`)})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.IntakeMessages.WithLabelValues(tt.want)))
		})
	}
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	reader := &fakeReader{fetchErrs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newConsumer(reader, &fakeSender{}, metrics.NewNop()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, reader.closed)
	assert.Empty(t, reader.committed)
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, intake.Config{}.Enabled())
	assert.True(t, intake.Config{Brokers: []string{"localhost:9092"}}.Enabled())
}
