package escalate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpbot/backend/internal/storage/models"
)

type mockRecorder struct {
	recorded []models.EscalationRecord
	err      error
}

func (m *mockRecorder) AppendEscalation(_ context.Context, rec models.EscalationRecord) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.recorded = append(m.recorded, rec)
	return int64(len(m.recorded)), nil
}

func TestEscalateRecordsAndReturnsContacts(t *testing.T) {
	store := &mockRecorder{}
	w := NewWorkflow(store, nil)

	payload := w.Escalate(context.Background(), "s1", "alice", "nothing works")

	assert.True(t, payload.Persisted)
	assert.Equal(t, int64(1), payload.EscalationID)
	assert.Equal(t, models.EscalationStatusPending, payload.Status)
	assert.Len(t, payload.Contacts, 4)

	require.Len(t, store.recorded, 1)
	assert.Equal(t, "nothing works", store.recorded[0].Reason)
	assert.Equal(t, models.EscalationStatusPending, store.recorded[0].Status)
}

func TestEscalatePersistenceFailureIsReportedNotFatal(t *testing.T) {
	store := &mockRecorder{err: errors.New("disk full")}
	w := NewWorkflow(store, nil)

	payload := w.Escalate(context.Background(), "s1", "alice", "broken")

	assert.False(t, payload.Persisted)
	assert.Zero(t, payload.EscalationID)
	// The contact menu is static configuration and survives the failure.
	assert.Len(t, payload.Contacts, 4)
}

func TestContactInfoForUnknownChannel(t *testing.T) {
	_, err := ContactInfoFor(Channel(42))

	var unknownErr *UnknownChannelError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, Channel(42), unknownErr.Channel)
}

func TestContactInfoForKnownChannels(t *testing.T) {
	for _, c := range []Channel{ChannelChat, ChannelEmail, ChannelPhone, ChannelTicket} {
		info, err := ContactInfoFor(c)
		require.NoError(t, err)
		assert.Equal(t, c.String(), info.Channel)
		assert.True(t, info.Available)
	}
}
