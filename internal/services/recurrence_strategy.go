// Package services provides orchestration on top of the collection
// synchronizers.
//
// This file implements the Strategy Pattern for advancing recurring expenses.
// Each recurrence interval has its own stepper computing the next due date.
package services

import (
	"fmt"
	"time"

	"unidiary/internal/core"
)

// Stepper computes the occurrence that follows due. anchor is the expense's
// original date; its day of month is kept when months are shorter.
type Stepper interface {
	Next(due, anchor core.Date) core.Date
}

// WeeklyStepper advances by seven days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(due, _ core.Date) core.Date {
	return due.AddDays(7)
}

// MonthlyStepper moves to the anchor day of the following month, clamped to
// the month's last day (Jan 31 -> Feb 28 -> Mar 31).
type MonthlyStepper struct{}

func (MonthlyStepper) Next(due, anchor core.Date) core.Date {
	year, month := due.Year(), due.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return clampedDate(year, month, anchorDay(due, anchor))
}

// YearlyStepper moves to the same month next year; Feb 29 becomes Feb 28.
type YearlyStepper struct{}

func (YearlyStepper) Next(due, anchor core.Date) core.Date {
	return clampedDate(due.Year()+1, due.Month(), anchorDay(due, anchor))
}

func anchorDay(due, anchor core.Date) int {
	if anchor.IsEmpty() || anchor.Day() < due.Day() {
		return due.Day()
	}
	return anchor.Day()
}

func clampedDate(year int, month time.Month, day int) core.Date {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return core.NewDate(year, int(month), day)
}

// steppers maps recurrence intervals to their strategies.
var steppers = map[core.RecurrenceInterval]Stepper{
	core.RecurrenceWeekly:  WeeklyStepper{},
	core.RecurrenceMonthly: MonthlyStepper{},
	core.RecurrenceYearly:  YearlyStepper{},
}

// GetStepper returns the stepper of an interval. "none" has no stepper.
func GetStepper(interval core.RecurrenceInterval) (Stepper, error) {
	s, ok := steppers[interval]
	if !ok {
		return nil, fmt.Errorf("no stepper for recurrence interval %q", interval)
	}
	return s, nil
}

// RegisterStepper allows registering steppers for new intervals.
func RegisterStepper(interval core.RecurrenceInterval, s Stepper) {
	steppers[interval] = s
}
