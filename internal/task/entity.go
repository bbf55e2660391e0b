package task

import (
	"fmt"
	"time"

	"github.com/gardenops/grounds/internal/season"
)

type Category string

const (
	CategoryTreeWork             Category = "TreeWork"
	CategoryShrubWork            Category = "ShrubWork"
	CategoryLawnCare             Category = "LawnCare"
	CategoryPondMaintenance      Category = "PondMaintenance"
	CategoryWildflowerMeadowWork Category = "WildflowerMeadowWork"
)

// Categories is the fixed display order used when grouping task lists.
var Categories = []Category{
	CategoryTreeWork,
	CategoryShrubWork,
	CategoryLawnCare,
	CategoryPondMaintenance,
	CategoryWildflowerMeadowWork,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "", string(UrgencyNormal):
		return UrgencyNormal, nil
	case string(UrgencyUrgent):
		return UrgencyUrgent, nil
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

// Task is a unit of seasonal maintenance work. Completed and Archived are
// monotonic: no operation resets them to false.
type Task struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    Category      `json:"category"`
	DueDate     time.Time     `json:"dueDate"`
	Season      season.Season `json:"season"`
	AssigneeID  string        `json:"assigneeId"` // empty = unassigned
	Urgency     Urgency       `json:"urgency"`
	Attachment  string        `json:"attachment,omitempty"`
	Completed   bool          `json:"completed"`
	Archived    bool          `json:"archived"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IsUrgent reports whether the task is flagged urgent or due today.
func (t *Task) IsUrgent(today time.Time) bool {
	return t.Urgency == UrgencyUrgent || season.SameDay(t.DueDate, today)
}

// IsOverdue reports whether the task's due date has passed without the
// task being completed. The comparison is date-only.
func (t *Task) IsOverdue(today time.Time) bool {
	return season.IsOverdue(t.Completed, t.DueDate, today)
}

// View is the wire representation of a task, with the due-date derived
// flags evaluated against the request time.
type View struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    Category      `json:"category"`
	DueDate     string        `json:"dueDate"`
	Season      season.Season `json:"season"`
	AssigneeID  string        `json:"assigneeId"`
	Urgency     Urgency       `json:"urgency"`
	Attachment  string        `json:"attachment,omitempty"`
	Completed   bool          `json:"completed"`
	Archived    bool          `json:"archived"`
	Overdue     bool          `json:"overdue"`
	Urgent      bool          `json:"urgent"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// DateLayout is the calendar-date format used for due dates on the wire.
const DateLayout = "2006-01-02"

func (t *Task) ViewAt(now time.Time) View {
	return View{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		DueDate:     t.DueDate.Format(DateLayout),
		Season:      t.Season,
		AssigneeID:  t.AssigneeID,
		Urgency:     t.Urgency,
		Attachment:  t.Attachment,
		Completed:   t.Completed,
		Archived:    t.Archived,
		Overdue:     t.IsOverdue(now),
		Urgent:      t.IsUrgent(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
