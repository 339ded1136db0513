// ABOUTME: Tests for row types, embed normalization, and validation helpers
// ABOUTME: Covers object-vs-array embeds, watchability, UUID shape, and ilike escaping

package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded_ObjectShape(t *testing.T) {
	var row SubscriptionRow
	err := json.Unmarshal([]byte(`{"id":"sub-1","user_id":"u-1","status":"active","plan":{"id":"p-1","name":"Pro"}}`), &row)
	require.NoError(t, err)
	require.NotNil(t, row.Plan.Value)
	assert.Equal(t, "Pro", row.Plan.Value.Name)
}

func TestEmbedded_ArrayShape(t *testing.T) {
	var row SubscriptionRow
	err := json.Unmarshal([]byte(`{"id":"sub-1","user_id":"u-1","status":"active","plan":[{"id":"p-1","name":"Pro"}]}`), &row)
	require.NoError(t, err)
	require.NotNil(t, row.Plan.Value)
	assert.Equal(t, "Pro", row.Plan.Value.Name)
}

func TestEmbedded_NullAndEmptyArray(t *testing.T) {
	var withNull SubscriptionRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"sub-1","plan":null}`), &withNull))
	assert.Nil(t, withNull.Plan.Value)

	var withEmpty SubscriptionRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"sub-1","plan":[]}`), &withEmpty))
	assert.Nil(t, withEmpty.Plan.Value)

	var absent SubscriptionRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"sub-1"}`), &absent))
	assert.Nil(t, absent.Plan.Value)
}

func TestRecording_Watchable(t *testing.T) {
	ready := RecordingRow{Status: RecordingStatusReady, StoragePath: "recordings/abc.mp4"}
	assert.True(t, ready.Watchable())

	// ready status alone is not enough: the media must exist in storage
	noPath := RecordingRow{Status: RecordingStatusReady, StoragePath: ""}
	assert.False(t, noPath.Watchable())

	blankPath := RecordingRow{Status: RecordingStatusReady, StoragePath: "   "}
	assert.False(t, blankPath.Watchable())

	notReady := RecordingRow{Status: RecordingStatusUploading, StoragePath: "recordings/abc.mp4"}
	assert.False(t, notReady.Watchable())
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("11111111-2222-3333-4444-555555555555"))
	assert.True(t, IsUUID("  11111111-2222-3333-4444-555555555555  "))
	// shape check only: version/variant bits are not enforced
	assert.True(t, IsUUID("ffffffff-ffff-ffff-ffff-ffffffffffff"))

	assert.False(t, IsUUID("abc"))
	assert.False(t, IsUUID(""))
	assert.False(t, IsUUID("11111111-2222-3333-4444-55555555555"))   // 35 chars
	assert.False(t, IsUUID("11111111-2222-3333-4444-5555555555555")) // 37 chars
	assert.False(t, IsUUID("gggggggg-2222-3333-4444-555555555555"))  // non-hex
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `foo\_bar`, EscapeLike("foo_bar"))
	assert.Equal(t, "plain", EscapeLike("plain"))
}

func TestLiveAccount_Label(t *testing.T) {
	withAccount := LiveAccountRow{ID: "row-id", AccountID: " streamer42 "}
	assert.Equal(t, "streamer42", withAccount.Label())

	withoutAccount := LiveAccountRow{ID: "row-id"}
	assert.Equal(t, "row-id", withoutAccount.Label())
}

func TestValidTicketStatus(t *testing.T) {
	for _, s := range TicketStatuses {
		assert.True(t, ValidTicketStatus(s))
	}
	assert.False(t, ValidTicketStatus("all"))
	assert.False(t, ValidTicketStatus(""))
}
