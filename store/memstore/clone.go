package memstore

import (
	"sort"

	"home-services-server/models"
)

// Values handed out by the store never share slices or pointers with the
// stored copy.

func cloneAccount(a models.Account) models.Account {
	a.Availability = cloneSchedule(a.Availability)
	if a.Location != nil {
		loc := *a.Location
		a.Location = &loc
	}
	a.Services = nil
	return a
}

func cloneService(s models.Service) models.Service {
	s.Availability.Schedule = cloneSchedule(s.Availability.Schedule)
	if s.Tags != nil {
		s.Tags = append([]string(nil), s.Tags...)
	}
	s.Provider = nil
	s.Distance = nil
	return s
}

func cloneBooking(b models.Booking) models.Booking {
	if b.Location != nil {
		loc := *b.Location
		b.Location = &loc
	}
	b.User = nil
	b.Provider = nil
	b.Service = nil
	return b
}

func cloneSchedule(days []models.DaySchedule) []models.DaySchedule {
	if days == nil {
		return nil
	}
	out := make([]models.DaySchedule, len(days))
	for i, day := range days {
		out[i] = models.DaySchedule{Day: day.Day, Slots: append([]models.TimeSlot(nil), day.Slots...)}
	}
	return out
}

func sortedKeys[V any](m map[uint]V) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
