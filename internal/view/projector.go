// Package view derives the pinned and recent lists shown to consumers.
package view

import (
	"clipboard-sync/pkg/types"
	"strings"
)

// View is one projection of the cache under a query.
type View struct {
	Query  string
	Pinned []types.Clip
	Recent []types.Clip

	// NoResults is set when a non-empty query matched nothing in a non-empty
	// cache. Pinned and Recent then hold the unfiltered partitions.
	NoResults bool
}

// Matcher resolves a query to clip IDs in rank order. all reports that the
// query does not filter.
type Matcher interface {
	Query(text string) (ids []int64, all bool)
}

// Project partitions clips into pinned and recent under query. clips must be
// in display order (most recently changed first). Project does not retain
// clips or cache its result.
func Project(clips []types.Clip, m Matcher, query string) View {
	v := View{Query: query}
	if strings.TrimSpace(query) == "" {
		v.Pinned, v.Recent = partition(clips)
		return v
	}

	ids, all := m.Query(query)
	if all {
		v.Pinned, v.Recent = partition(clips)
		return v
	}

	byID := make(map[int64]types.Clip, len(clips))
	for _, clip := range clips {
		byID[clip.ID] = clip
	}

	matched := make([]types.Clip, 0, len(ids))
	for _, id := range ids {
		// the index may briefly lag behind clips
		if clip, ok := byID[id]; ok {
			matched = append(matched, clip)
		}
	}

	if len(matched) == 0 && len(clips) > 0 {
		v.NoResults = true
		v.Pinned, v.Recent = partition(clips)
		return v
	}

	v.Pinned, v.Recent = partition(matched)
	return v
}

func partition(clips []types.Clip) (pinned, recent []types.Clip) {
	pinned = make([]types.Clip, 0)
	recent = make([]types.Clip, 0, len(clips))
	for _, clip := range clips {
		if clip.IsPinned {
			pinned = append(pinned, clip)
		} else {
			recent = append(recent, clip)
		}
	}
	return pinned, recent
}
