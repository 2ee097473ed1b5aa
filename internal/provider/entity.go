// Package provider schedules which reading provider covers each day and shift.
package provider

import (
	"time"

	"github.com/kazz187/labtrack/pkg/date"
)

type Shift string

const (
	ShiftDay     Shift = "Day"
	ShiftNight   Shift = "Night"
	ShiftWeekend Shift = "Weekend"
)

func (s Shift) Valid() bool {
	return s == ShiftDay || s == ShiftNight || s == ShiftWeekend
}

type Assignment struct {
	ID         string    `yaml:"id" json:"id"`
	Date       date.Date `yaml:"date" json:"date"`
	Shift      Shift     `yaml:"shift" json:"shift"`
	ProviderID string    `yaml:"provider_id" json:"providerId"`
	Notes      string    `yaml:"notes" json:"notes"`
	CreatedAt  time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `yaml:"updated_at" json:"updatedAt"`
}
