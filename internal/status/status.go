// Package status derives the display badge for every release from
// wall-clock time. The result is a projection: it is recomputed on
// every read of the release set and never persisted.
package status

import (
	"time"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/slug"
)

// Badge labels shown on the public site.
const (
	BadgePublished = "Lanzamiento publicado"
	BadgeNew       = "Nuevo lanzamiento"
	BadgeUpcoming  = "Lanzamiento proximo"
)

// Apply classifies every release as published, newest or upcoming
// relative to now:
//
//   - a release dated strictly after now is upcoming, as is a dateless
//     release the editor explicitly flagged upcoming
//   - among the non-upcoming releases that have a parseable date, the
//     one with the maximum date gets the "new" badge
//   - everything else non-upcoming is "published"
//
// When several releases share the maximum date the winner follows
// iteration order.
func Apply(releases []entities.Release, now time.Time) []entities.Release {
	type meta struct {
		date     time.Time
		hasDate  bool
		upcoming bool
	}

	metas := make([]meta, len(releases))
	latestIdx := -1
	for i, release := range releases {
		var m meta
		if date, err := slug.ParseDate(release.ReleaseDate); err == nil {
			m.date = date
			m.hasDate = true
		}
		m.upcoming = (m.hasDate && m.date.After(now)) || (!m.hasDate && release.IsUpcoming)
		metas[i] = m

		if m.hasDate && !m.upcoming {
			if latestIdx < 0 || m.date.After(metas[latestIdx].date) {
				latestIdx = i
			}
		}
	}

	out := make([]entities.Release, len(releases))
	for i, release := range releases {
		release.IsUpcoming = metas[i].upcoming
		switch {
		case metas[i].upcoming:
			release.Badge = BadgeUpcoming
		case i == latestIdx:
			release.Badge = BadgeNew
		default:
			release.Badge = BadgePublished
		}
		out[i] = release
	}
	return out
}
