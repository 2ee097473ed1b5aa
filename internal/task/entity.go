// Package task holds EEG orders and keeps their derived status, progress and
// completion date in step with the checklist.
package task

import (
	"time"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/pkg/date"
)

type Priority string

const (
	PriorityRoutine Priority = "Routine"
	PriorityUrgent  Priority = "Urgent"
	PrioritySTAT    Priority = "STAT"
)

// Priorities lists every priority in display order.
func Priorities() []Priority {
	return []Priority{PriorityRoutine, PriorityUrgent, PrioritySTAT}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityRoutine, PriorityUrgent, PrioritySTAT:
		return true
	}
	return false
}

type Task struct {
	ID                string           `yaml:"id" json:"id"`
	Title             string           `yaml:"title" json:"title"`
	PatientName       string           `yaml:"patient_name" json:"patientName"`
	MRN               string           `yaml:"mrn" json:"mrn"`
	Room              string           `yaml:"room" json:"room"`
	OrderType         string           `yaml:"order_type" json:"orderType"`
	Priority          Priority         `yaml:"priority" json:"priority"`
	StationID         string           `yaml:"station_id" json:"stationId"`
	AssigneeID        string           `yaml:"assignee_id" json:"assigneeId"`
	ReadingProviderID string           `yaml:"reading_provider_id" json:"readingProviderId"`
	Notes             string           `yaml:"notes" json:"notes"`
	Checklist         []checklist.Item `yaml:"checklist" json:"checklist"`
	// Status, Progress and CompletedOn are written on every save but are
	// re-derived from Checklist whenever a task is read.
	Status      checklist.Status `yaml:"status" json:"status"`
	Progress    int              `yaml:"progress" json:"progress"`
	CompletedOn date.Date        `yaml:"completed_on,omitempty" json:"completedOn,omitzero"`
	CreatedBy   string           `yaml:"created_by" json:"createdBy"`
	CreatedAt   time.Time        `yaml:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `yaml:"updated_at" json:"updatedAt"`
}

func (t *Task) State() checklist.State {
	return checklist.State{
		Checklist:   t.Checklist,
		Status:      t.Status,
		Progress:    t.Progress,
		CompletedOn: t.CompletedOn,
	}
}

func (t *Task) SetState(s checklist.State) {
	t.Checklist = s.Checklist
	t.Status = s.Status
	t.Progress = s.Progress
	t.CompletedOn = s.CompletedOn
}

// Open reports whether the task still occupies its station.
func (t *Task) Open() bool {
	return t.Status == checklist.StatusPending || t.Status == checklist.StatusInProgress
}
