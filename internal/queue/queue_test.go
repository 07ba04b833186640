package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/core/internal/id"
)

func TestPushRefusesColldingRef(t *testing.T) {
	q := New(0)
	sid := id.NewSeriesID()
	r := id.NewCatalogARemoteID(1)

	_, ok := q.Push(CheckForUpdates(sid, r, nil), nil)
	require.True(t, ok)

	_, ok = q.Push(CheckForUpdates(sid, r, nil), nil)
	assert.False(t, ok, "second push sharing a ref must be refused")
	assert.Len(t, q.Pending(), 1)
}

func TestPushWithDelaySpacesSuccessivePushes(t *testing.T) {
	q := New(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	id1, ok := q.PushWithDelay(DownloadSeriesByRemote(id.NewCatalogARemoteID(1)), now)
	require.True(t, ok)
	id2, ok := q.PushWithDelay(DownloadSeriesByRemote(id.NewCatalogARemoteID(2)), now)
	require.True(t, ok)

	pending := q.Pending()
	require.Len(t, pending, 2)
	var first, second Task
	for _, p := range pending {
		if p.ID == id1 {
			first = p
		}
		if p.ID == id2 {
			second = p
		}
	}
	require.NotNil(t, first.ScheduledAt)
	require.NotNil(t, second.ScheduledAt)
	assert.True(t, second.ScheduledAt.Sub(*first.ScheduledAt) >= enqueueDelay)
}

func TestNextTaskOrderingIsNondecreasing(t *testing.T) {
	q := New(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := now.Add(10 * time.Second)
	t3 := now.Add(20 * time.Second)

	q.Push(DownloadSeriesByRemote(id.NewCatalogARemoteID(3)), &t3)
	q.Push(DownloadSeriesByRemote(id.NewCatalogARemoteID(1)), nil)
	q.Push(DownloadSeriesByRemote(id.NewCatalogARemoteID(2)), &t2)

	var last time.Time
	for i := 0; i < 3; i++ {
		task, ok := q.NextTask(t3, nil)
		require.True(t, ok)
		if task.ScheduledAt != nil {
			require.True(t, !task.ScheduledAt.Before(last))
			last = *task.ScheduledAt
		}
	}
}

func TestCompleteMovesTaskToCompletedRingAndFreesRef(t *testing.T) {
	q := New(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sid := id.NewSeriesID()
	r := id.NewCatalogARemoteID(5)

	taskID, ok := q.Push(CheckForUpdates(sid, r, nil), nil)
	require.True(t, ok)

	task, ok := q.NextTask(now, nil)
	require.True(t, ok)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, StatusRunning, q.Status(SeriesRef(sid)))

	prior := q.Complete(now, task)
	assert.Equal(t, StatusRunning, prior)
	assert.Equal(t, StatusNone, q.Status(SeriesRef(sid)))
	assert.Len(t, q.Completed(), 1)

	// ref is free again
	_, ok = q.Push(CheckForUpdates(sid, r, nil), nil)
	assert.True(t, ok)
}

func TestCompletedRingIsBounded(t *testing.T) {
	q := New(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		kind := DownloadSeriesByRemote(id.NewCatalogARemoteID(int64(i)))
		_, ok := q.Push(kind, nil)
		require.True(t, ok)
		task, ok := q.NextTask(now, nil)
		require.True(t, ok)
		q.Complete(now, task)
	}

	assert.Len(t, q.Completed(), 2)
}

func TestTakeModifiedClearsOnRead(t *testing.T) {
	q := New(0)
	q.Push(DownloadSeriesByRemote(id.NewCatalogARemoteID(1)), nil)
	assert.True(t, q.TakeModified())
	assert.False(t, q.TakeModified())
}

func TestIsAtCapacity(t *testing.T) {
	q := New(0)
	for i := 0; i < softCapacity; i++ {
		_, ok := q.Push(DownloadSeriesByRemote(id.NewCatalogARemoteID(int64(i))), nil)
		require.True(t, ok)
	}
	assert.True(t, q.IsAtCapacity())
}

func TestRemovePendingReleasesRefs(t *testing.T) {
	q := New(0)
	sid := id.NewSeriesID()
	r := id.NewCatalogARemoteID(9)
	other := id.NewCatalogARemoteID(10)

	q.Push(CheckForUpdates(sid, r, nil), nil)
	q.Push(DownloadSeriesByRemote(other), nil)

	removed := q.RemovePending(SeriesRef(sid))
	assert.Equal(t, 1, removed)
	assert.Len(t, q.Pending(), 1)
	assert.Equal(t, StatusNone, q.Status(SeriesRef(sid)))
	assert.Equal(t, StatusNone, q.Status(RemoteRef(r)))

	_, ok := q.Push(CheckForUpdates(sid, r, nil), nil)
	assert.True(t, ok, "refs must be reusable after removal")
}
