// Package queue is the scheduled, de-duplicated task queue: a FIFO of
// pending tasks ordered by scheduled time, a vector of running tasks, and
// a bounded completed ring, with de-dup keyed by task-ref projection
// rather than queue scans.
package queue

import (
	"time"

	"github.com/jellywatch/core/internal/id"
)

// Kind discriminates a Task's variant.
type Kind int

const (
	KindCheckForUpdates Kind = iota
	KindDownloadSeries
	KindDownloadMovie
	KindDownloadSeriesByRemote
	KindDownloadMovieByRemote
)

// TaskKind is the sum type over the five task kinds. Only the fields
// relevant to the active Kind are meaningful; callers switch on Kind
// before reading them, the same discriminated-struct shape
// internal/store.WatchTarget uses.
type TaskKind struct {
	Kind Kind

	Series id.SeriesID
	Movie  id.MovieID
	Remote id.RemoteID

	LastModified *time.Time
	Force        bool
}

func CheckForUpdates(series id.SeriesID, remote id.RemoteID, lastModified *time.Time) TaskKind {
	return TaskKind{Kind: KindCheckForUpdates, Series: series, Remote: remote, LastModified: lastModified}
}

func DownloadSeries(series id.SeriesID, remote id.RemoteID, lastModified *time.Time, force bool) TaskKind {
	return TaskKind{Kind: KindDownloadSeries, Series: series, Remote: remote, LastModified: lastModified, Force: force}
}

func DownloadMovie(movie id.MovieID, remote id.RemoteID, lastModified *time.Time, force bool) TaskKind {
	return TaskKind{Kind: KindDownloadMovie, Movie: movie, Remote: remote, LastModified: lastModified, Force: force}
}

func DownloadSeriesByRemote(remote id.RemoteID) TaskKind {
	return TaskKind{Kind: KindDownloadSeriesByRemote, Remote: remote}
}

func DownloadMovieByRemote(remote id.RemoteID) TaskKind {
	return TaskKind{Kind: KindDownloadMovieByRemote, Remote: remote}
}

// RefKind discriminates a Ref's variant.
type RefKind int

const (
	RefSeries RefKind = iota
	RefMovie
	RefRemote
)

// Ref is an abstract key derived from a task's kind used for
// de-duplication (glossary "Task ref"); two tasks collide iff they share
// any Ref. Comparable, so it can key a plain Go map.
type Ref struct {
	Kind     RefKind
	SeriesID id.SeriesID
	MovieID  id.MovieID
	Remote   id.RemoteID
}

func SeriesRef(sid id.SeriesID) Ref { return Ref{Kind: RefSeries, SeriesID: sid} }
func MovieRef(mid id.MovieID) Ref   { return Ref{Kind: RefMovie, MovieID: mid} }
func RemoteRef(r id.RemoteID) Ref   { return Ref{Kind: RefRemote, Remote: r} }

// Refs projects a task kind to its collision set.
func (k TaskKind) Refs() []Ref {
	switch k.Kind {
	case KindCheckForUpdates, KindDownloadSeries:
		return []Ref{SeriesRef(k.Series), RemoteRef(k.Remote)}
	case KindDownloadMovie:
		return []Ref{MovieRef(k.Movie), RemoteRef(k.Remote)}
	case KindDownloadSeriesByRemote, KindDownloadMovieByRemote:
		return []Ref{RemoteRef(k.Remote)}
	default:
		return nil
	}
}

// Task is one unit of scheduled catalog work.
type Task struct {
	ID          id.TaskID
	Kind        TaskKind
	ScheduledAt *time.Time
}

// Status is the lane a task occupies, or None if it is not tracked at
// all.
type Status int

const (
	StatusNone Status = iota
	StatusPending
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	default:
		return "none"
	}
}

// CompletedTask is a Task plus its completion time, kept in the bounded
// ring for observability only.
type CompletedTask struct {
	Task        Task
	CompletedAt time.Time
}
