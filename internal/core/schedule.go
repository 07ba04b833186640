package core

import (
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/store"
)

// ScheduleEpisode is one airing in the schedule window, trimmed to what
// the UI renders.
type ScheduleEpisode struct {
	EpisodeID      id.EpisodeID `json:"episode_id"`
	Name           *string      `json:"name,omitempty"`
	AbsoluteNumber *int         `json:"absolute_number,omitempty"`
	Season         store.SeasonNumber `json:"season"`
	Number         int          `json:"number"`
}

// ScheduleSeries groups one series' airings on one day.
type ScheduleSeries struct {
	SeriesID id.SeriesID      `json:"series_id"`
	Title    string           `json:"title"`
	Poster   *id.ImageRef     `json:"poster,omitempty"`
	Episodes []ScheduleEpisode `json:"episodes"`
}

// ScheduleDay is one non-empty calendar day in the schedule window.
type ScheduleDay struct {
	Date   time.Time        `json:"date"`
	Series []ScheduleSeries `json:"series"`
}

// Schedule computes the per-day air schedule for the configured window:
// day by day from "today" forward, tracked series only, grouping episodes
// by the calendar day they air; empty days are omitted. "Today" is the
// scheduler's cached anchor, advanced on the sweep tick rather than per
// call.
func (c *Core) Schedule() []ScheduleDay {
	now := c.anchor.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := c.cfg.ScheduleDurationDays
	if days <= 0 {
		return nil
	}
	end := today.AddDate(0, 0, days)

	// dayBuckets[i] collects the airings on today+i, per series.
	dayBuckets := make([]map[id.SeriesID][]ScheduleEpisode, days)

	for _, sr := range c.st.SeriesByName() {
		if !sr.Tracked {
			continue
		}
		for _, e := range c.st.EpisodesBySeries(sr.ID).Collect() {
			if e.Aired == nil {
				continue
			}
			aired := e.Aired.In(now.Location())
			if aired.Before(today) || !aired.Before(end) {
				continue
			}
			idx := int(aired.Sub(today).Hours() / 24)
			if idx < 0 || idx >= days {
				continue
			}
			if dayBuckets[idx] == nil {
				dayBuckets[idx] = make(map[id.SeriesID][]ScheduleEpisode)
			}
			dayBuckets[idx][sr.ID] = append(dayBuckets[idx][sr.ID], ScheduleEpisode{
				EpisodeID:      e.ID,
				Name:           e.Name,
				AbsoluteNumber: e.AbsoluteNumber,
				Season:         e.Season,
				Number:         e.Number,
			})
		}
	}

	// Emit in day order, series within a day in title order.
	var out []ScheduleDay
	titleOrder := c.st.SeriesByName()
	for i := 0; i < days; i++ {
		bucket := dayBuckets[i]
		if len(bucket) == 0 {
			continue
		}
		day := ScheduleDay{Date: today.AddDate(0, 0, i)}
		for _, sr := range titleOrder {
			eps, ok := bucket[sr.ID]
			if !ok {
				continue
			}
			day.Series = append(day.Series, ScheduleSeries{
				SeriesID: sr.ID,
				Title:    sr.Title,
				Poster:   sr.Graphics.Poster,
				Episodes: eps,
			})
		}
		out = append(out, day)
	}
	return out
}

// DashboardConfig is the settings slice the dashboard view needs.
type DashboardConfig struct {
	Theme                string `json:"theme"`
	DashboardPageSize    int    `json:"dashboard_page_size"`
	SchedulePageSize     int    `json:"schedule_page_size"`
	ScheduleDurationDays int    `json:"schedule_duration_days"`
}

// DashboardUpdate is the view projection pushed to the UI whenever
// pending changes: a config snapshot plus the schedule window,
// self-contained so the UI renders without holding store locks.
type DashboardUpdate struct {
	Config DashboardConfig `json:"config"`
	Days   []ScheduleDay   `json:"days"`
}

// Dashboard computes the current DashboardUpdate projection.
func (c *Core) Dashboard() DashboardUpdate {
	return DashboardUpdate{
		Config: DashboardConfig{
			Theme:                c.cfg.Theme,
			DashboardPageSize:    c.cfg.DashboardPageSize,
			SchedulePageSize:     c.cfg.SchedulePageSize,
			ScheduleDurationDays: c.cfg.ScheduleDurationDays,
		},
		Days: c.Schedule(),
	}
}
