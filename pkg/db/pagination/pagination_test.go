package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", decoded.ID)
	assert.Equal(t, "2026-01-01T00:00:00Z", decoded.CreatedAt)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	extract := func(r *row) string { return r.id }

	info := BuildCursorPageInfo([]*row{{id: "a"}, {id: "b"}}, 2, extract)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)

	info = BuildCursorPageInfo([]*row{{id: "a"}, {id: "b"}, {id: "c"}}, 2, extract)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)
}
