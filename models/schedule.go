package models

import (
	"time"

	"github.com/juju/errors"
)

// Weekday names accepted in availability schedules.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// TimeSlot is a bookable window within a day, in "HH:MM" 24h form.
type TimeSlot struct {
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	IsBooked  bool   `json:"isBooked"`
}

// DaySchedule lists the slots offered on one weekday.
type DaySchedule struct {
	Day   string     `json:"day" binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Slots []TimeSlot `json:"slots" binding:"dive"`
}

// ValidateSchedule checks weekday names and that every slot ends after it starts.
func ValidateSchedule(schedule []DaySchedule) error {
	for _, day := range schedule {
		if !isWeekday(day.Day) {
			return errors.NotValidf("schedule day %q", day.Day)
		}
		for _, slot := range day.Slots {
			start, err := time.Parse("15:04", slot.StartTime)
			if err != nil {
				return errors.NotValidf("slot start time %q", slot.StartTime)
			}
			end, err := time.Parse("15:04", slot.EndTime)
			if err != nil {
				return errors.NotValidf("slot end time %q", slot.EndTime)
			}
			if !end.After(start) {
				return errors.NotValidf("slot %s-%s on %s", slot.StartTime, slot.EndTime, day.Day)
			}
		}
	}
	return nil
}

func isWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
