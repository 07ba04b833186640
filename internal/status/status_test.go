package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingEvictsOldestWhenFull(t *testing.T) {
	r := NewRing(3)
	r.RecordError(KindRemote, "k1", "first", errors.New("boom"))
	r.RecordError(KindRemote, "k2", "second", nil)
	r.RecordError(KindRemote, "k3", "third", nil)
	r.RecordError(KindRemote, "k4", "fourth", nil)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "second", all[0].Message)
	assert.Equal(t, "fourth", all[2].Message)
	assert.Equal(t, 3, r.Len())
}

func TestByKeyFiltersCorrelatedEntries(t *testing.T) {
	r := NewRing(10)
	r.RecordError(KindRemote, "search-1", "no results", nil)
	r.RecordError(KindIO, "", "flush failed", nil)
	r.RecordError(KindRemote, "search-1", "timed out", nil)

	got := r.ByKey("search-1")
	require.Len(t, got, 2)
	assert.Equal(t, "no results", got[0].Message)
	assert.Equal(t, "timed out", got[1].Message)
}

func TestRecordErrorCapturesCause(t *testing.T) {
	r := NewRing(1)
	cause := errors.New("underlying")
	r.RecordError(KindParse, "", "bad body", cause)

	got := r.All()
	require.Len(t, got, 1)
	assert.Equal(t, "underlying", got[0].Cause)
}
