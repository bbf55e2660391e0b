package task

import (
	"fmt"
	"time"

	"github.com/gardenops/grounds/internal/account"
	"github.com/gardenops/grounds/internal/season"
)

// ViewContext selects which slice of the task list a request is for.
type ViewContext string

const (
	// ViewHome is the operational day-to-day view: no archived tasks,
	// current season only.
	ViewHome ViewContext = "home"
	// ViewAdmin shows every unarchived task regardless of season.
	ViewAdmin ViewContext = "admin"
	// ViewArchive shows archived tasks only.
	ViewArchive ViewContext = "archive"
)

func ParseViewContext(s string) (ViewContext, error) {
	switch s {
	case "", string(ViewHome):
		return ViewHome, nil
	case string(ViewAdmin):
		return ViewAdmin, nil
	case string(ViewArchive):
		return ViewArchive, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// FilterAll is the wildcard value for the category and assignee filters.
const FilterAll = "All"

type Filter struct {
	View       ViewContext
	Category   string // FilterAll or a category name
	AssigneeID string // FilterAll or an account id
}

// Apply computes the task subset a viewer is allowed to see, in display
// order. The input order is the repository's arrival order and is
// preserved within each category group.
//
// A generic-role viewer is always clamped to their own tasks; the
// requested assignee filter cannot widen that scope. The Home-view season
// restriction is a display policy, not a security boundary: the same
// tasks remain reachable through the Admin view.
func Apply(tasks []*Task, viewer account.Viewer, f Filter, now time.Time) []*Task {
	current := season.Current(now)

	var kept []*Task
	for _, t := range tasks {
		if t.Archived != (f.View == ViewArchive) {
			continue
		}
		if !viewer.Role.CanViewAllTasks() {
			if t.AssigneeID != viewer.AccountID {
				continue
			}
		} else if f.AssigneeID != "" && f.AssigneeID != FilterAll && t.AssigneeID != f.AssigneeID {
			continue
		}
		if f.Category != "" && f.Category != FilterAll && string(t.Category) != f.Category {
			continue
		}
		if f.View == ViewHome && t.Season != current {
			continue
		}
		kept = append(kept, t)
	}

	return groupByCategory(kept)
}

// groupByCategory orders tasks by the fixed category list, keeping the
// incoming order within each group. Tasks with a category outside the
// list sort last, still in arrival order.
func groupByCategory(tasks []*Task) []*Task {
	if len(tasks) == 0 {
		return tasks
	}
	ordered := make([]*Task, 0, len(tasks))
	for _, c := range Categories {
		for _, t := range tasks {
			if t.Category == c {
				ordered = append(ordered, t)
			}
		}
	}
	for _, t := range tasks {
		if _, err := ParseCategory(string(t.Category)); err != nil {
			ordered = append(ordered, t)
		}
	}
	return ordered
}
