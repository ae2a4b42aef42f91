package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTaskAssignsID(t *testing.T) {
	payload, body, err := encodeTask(taskPayload{Kind: taskAdminEmail, SubmissionID: "sub-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, payload.ID)
	assert.Contains(t, body, `"admin_email"`)
	assert.Contains(t, body, `"sub-1"`)
}

func TestEncodeTaskKeepsExistingID(t *testing.T) {
	payload, _, err := encodeTask(taskPayload{ID: "task-1", Kind: taskUserEmail, SubmissionID: "sub-1"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", payload.ID)
}

func TestDecodeTaskRoundTrip(t *testing.T) {
	_, body, err := encodeTask(taskPayload{Kind: taskUserEmail, SubmissionID: "sub-9"})
	require.NoError(t, err)

	decoded, err := decodeTask(body)
	require.NoError(t, err)
	assert.Equal(t, taskUserEmail, decoded.Kind)
	assert.Equal(t, "sub-9", decoded.SubmissionID)
}

func TestDecodeTaskRejectsMalformed(t *testing.T) {
	_, err := decodeTask("{not json")
	assert.Error(t, err)
}

func TestDecodeTaskRejectsMissingSubmissionID(t *testing.T) {
	_, err := decodeTask(`{"id":"task-1","kind":"admin_email"}`)
	assert.Error(t, err)
}

func TestMemoryQueueSendReceiveDelete(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, q.Send(ctx, "hello"))

	msgs, err := q.Receive(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Body)

	assert.NoError(t, q.Delete(ctx, msgs[0].ReceiptHandle))
}
