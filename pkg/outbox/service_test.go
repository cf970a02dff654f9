package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/outbox/payloads"
)

func newTestOutbox(t *testing.T) (*Service, *Repository, *gorm.DB, *bytes.Buffer) {
	t.Helper()
	conn := dbtest.Open(t)
	buf := &bytes.Buffer{}
	repo := NewRepository(conn)
	return NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: buf})), repo, conn, buf
}

func TestEmitWritesEnvelope(t *testing.T) {
	svc, repo, conn, buf := newTestOutbox(t)
	orderID := uuid.New()

	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          payloads.OrderCanceledEvent{OrderID: orderID, OrderCode: 42},
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCanceled, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, enums.EventOrderCanceled, envelope.Type)
	assert.Equal(t, orderID.String(), envelope.AggregateID)

	var data payloads.OrderCanceledEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, int64(42), data.OrderCode)
	assert.Contains(t, buf.String(), "outbox event queued")
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc, _, _, _ := newTestOutbox(t)
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderPaid})
	assert.Error(t, err)
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	svc, repo, conn, _ := newTestOutbox(t)
	event := DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"k": "v"},
	}
	require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))
	require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))

	rows, err := repo.FetchUnpublished(10, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFailedRowsStopAtMaxAttempts(t *testing.T) {
	svc, repo, conn, _ := newTestOutbox(t)
	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          struct{}{},
	}))
	rows, err := repo.FetchUnpublished(10, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, repo.MarkFailed(rows[0].ID, errors.New("boom")))
	require.NoError(t, repo.MarkFailed(rows[0].ID, errors.New("boom")))

	rows, err = repo.FetchUnpublished(10, 2)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkPublishedAndPrune(t *testing.T) {
	svc, repo, conn, _ := newTestOutbox(t)
	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderConfirmationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          struct{}{},
	}))
	rows, err := svc.Pending(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, repo.MarkPublished(rows[0].ID))

	rows, err = svc.Pending(10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	deleted, err := repo.DeletePublishedBefore(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDecodeEnvelope(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":1,"data":{}}`))
	assert.ErrorIs(t, err, errMissingEventID)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e-1","type":"order_paid","data":{"k":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "e-1", env.EventID)
	assert.Equal(t, enums.OutboxEventType("order_paid"), env.Type)
}
