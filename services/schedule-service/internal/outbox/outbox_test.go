package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicgrid/libs/kafkax"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

var outboxColumns = []string{"id", "event_id", "aggregate_type", "aggregate_id", "event_type", "payload", "traceparent", "tracestate", "created_at"}

func newPublisher(mock pgxmock.PgxPoolIface) *Publisher {
	return NewPublisher(mock, NewRepository(), slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: 10})
}

func TestRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(pgxmock.AnyArg(), AggregateDoctorSchedule, "doc-1", EventAvailabilityUpdated, []byte(`{}`), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	id, err := NewRepository().Insert(ctx, tx, Event{
		AggregateType: AggregateDoctorSchedule,
		AggregateID:   "doc-1",
		EventType:     EventAvailabilityUpdated,
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_PublishBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").WithArgs(10).WillReturnRows(
		pgxmock.NewRows(outboxColumns).
			AddRow(int64(1), "evt-1", AggregateDoctorSchedule, "doc-1", EventAvailabilityUpdated, []byte(`{"doctor_id":"doc-1"}`), "", "", now).
			AddRow(int64(2), "evt-2", AggregateDoctorSchedule, "doc-2", EventAvailabilityUpdated, []byte(`{"doctor_id":"doc-2"}`), "", "", now),
	)
	mock.ExpectExec("UPDATE outbox_events").WithArgs([]int64{1, 2}).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	w := &fakeWriter{}
	n, err := newPublisher(mock).PublishBatch(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, w.msgs, 2)
	require.Equal(t, EventAvailabilityUpdated, w.msgs[0].Topic)
	require.Equal(t, "doc-1", string(w.msgs[0].Key))
	require.Equal(t, "evt-1", kafkax.ExtractEventMeta(w.msgs[0]).EventID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_WriteFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").WithArgs(10).WillReturnRows(
		pgxmock.NewRows(outboxColumns).
			AddRow(int64(7), "evt-7", AggregateDoctorSchedule, "doc-1", EventAvailabilityUpdated, []byte(`{}`), "", "", time.Now()),
	)
	mock.ExpectRollback()

	_, err = newPublisher(mock).PublishBatch(context.Background(), &fakeWriter{err: errors.New("broker down")})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_EmptyBatchCommits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").WithArgs(10).WillReturnRows(pgxmock.NewRows(outboxColumns))
	mock.ExpectCommit()

	n, err := newPublisher(mock).PublishBatch(context.Background(), &fakeWriter{})
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
