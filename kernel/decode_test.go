package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatch(t *testing.T) {
	data := []byte(`{
		"uploadTotal": 1111,
		"downloadTotal": 2222,
		"connections": [
			{
				"id": "c1",
				"metadata": {
					"network": "tcp",
					"type": "HTTP Connect",
					"sourceIP": "192.168.1.5",
					"destinationIP": "93.184.216.34",
					"sourcePort": "51234",
					"destinationPort": "443",
					"host": "example.com",
					"process": "curl"
				},
				"upload": 820,
				"download": 154000,
				"start": "2026-08-31T10:15:00Z",
				"chains": ["auto", "HK-01"],
				"rule": "Match",
				"rulePayload": ""
			},
			{"id": "c2", "upload": 1, "download": 2}
		]
	}`)

	b, err := DecodeBatch(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(1111), b.UploadTotal)
	assert.Equal(t, uint64(2222), b.DownloadTotal)
	assert.Zero(t, b.Dropped)
	require.Len(t, b.Connections, 2)

	c := b.Connections[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "example.com", c.Metadata.Host)
	assert.Equal(t, "curl", c.Metadata.ProcessName)
	assert.Equal(t, []string{"auto", "HK-01"}, c.Chains)
	assert.Equal(t, uint64(820), c.Counters.Upload)
	assert.Equal(t, uint64(154000), c.Counters.Download)
	assert.Equal(t, time.Date(2026, 8, 31, 10, 15, 0, 0, time.UTC), c.Counters.Start)
}

func TestDecodeBatchDropsBadRecordsOnly(t *testing.T) {
	data := []byte(`{"connections": [
		{"id": "ok1", "upload": 1},
		{"upload": 2},
		{"id": "", "upload": 3},
		{"id": "ok2", "upload": "not a number"},
		{"id": "ok3", "download": 4}
	]}`)

	b, err := DecodeBatch(data)
	require.NoError(t, err)

	// Bad records invalidate themselves, never the batch.
	assert.Equal(t, 3, b.Dropped)
	require.Len(t, b.Connections, 2)
	assert.Equal(t, "ok1", b.Connections[0].ID)
	assert.Equal(t, "ok3", b.Connections[1].ID)
}

func TestDecodeBatchMalformedFrame(t *testing.T) {
	_, err := DecodeBatch([]byte(`{"connections": "nope"}`))
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	_, err = DecodeBatch([]byte(`garbage`))
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecodeBatchEmpty(t *testing.T) {
	b, err := DecodeBatch([]byte(`{"uploadTotal": 5, "downloadTotal": 6, "connections": []}`))
	require.NoError(t, err)
	assert.Empty(t, b.Connections)
	assert.Zero(t, b.Dropped)

	b, err = DecodeBatch([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, b.Connections)
}
