package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "ScanStarted", typ: ScanStarted},
		{want: "ScanComplete", typ: ScanComplete},
		{want: "CheckStarted", typ: CheckStarted},
		{want: "CheckComplete", typ: CheckComplete},
		{want: "EntryOK", typ: EntryOK},
		{want: "EntryFlagged", typ: EntryFlagged},
		{want: "EntryWarning", typ: EntryWarning},
		{want: "EntryError", typ: EntryError},
		{want: "DuplicateClusterFound", typ: DuplicateClusterFound},
		{want: "SidecarCreated", typ: SidecarCreated},
		{want: "SidecarVerified", typ: SidecarVerified},
		{want: "SidecarMismatch", typ: SidecarMismatch},
		{want: "ConfidentialMatch", typ: ConfidentialMatch},
		{want: "ConfigInvalid", typ: ConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Path)
	assert.Zero(t, e.Size)
	assert.Zero(t, e.Total)
	assert.Zero(t, e.TotalSize)
	require.NoError(t, e.Error)
	assert.Zero(t, e.WorkerID)
}

func TestEventFields(t *testing.T) {
	now := time.Now()
	e := Event{
		Type:      EntryFlagged,
		Timestamp: now,
		Check:     "duplicates",
		Path:      "dir/file.txt",
		Size:      1024,
		WorkerID:  3,
	}
	assert.Equal(t, EntryFlagged, e.Type)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "duplicates", e.Check)
	assert.Equal(t, "dir/file.txt", e.Path)
	assert.Equal(t, int64(1024), e.Size)
	assert.Equal(t, 3, e.WorkerID)
}

func TestDuplicateClusterEventCarriesWastedBytesInSize(t *testing.T) {
	e := Event{Type: DuplicateClusterFound, Size: 14}
	assert.Equal(t, int64(14), e.Size)
}
