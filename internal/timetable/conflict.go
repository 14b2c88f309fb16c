package timetable

import "github.com/campushub/timetable-api/internal/models"

// FirstBlockOverlap scans recurring blocks in order and returns the first
// one overlapping the weekly candidate, or nil. Blocks belonging to
// excludeGroupID are skipped so an edited group never conflicts with its own
// previous schedule.
func FirstBlockOverlap(candidate models.TimeInterval, blocks []models.RecurringCommitment, excludeGroupID string) *models.RecurringCommitment {
	for i := range blocks {
		if excludeGroupID != "" && blocks[i].GroupID == excludeGroupID {
			continue
		}
		if candidate.Overlaps(blocks[i].TimeInterval) {
			return &blocks[i]
		}
	}
	return nil
}

// FirstBlockOverlapDated is FirstBlockOverlap for a dated candidate: a
// weekly block conflicts when the candidate's date falls on its weekday and
// the spans overlap.
func FirstBlockOverlapDated(candidate models.DatedInterval, blocks []models.RecurringCommitment, excludeGroupID string) *models.RecurringCommitment {
	for i := range blocks {
		if excludeGroupID != "" && blocks[i].GroupID == excludeGroupID {
			continue
		}
		if candidate.OverlapsRecurring(blocks[i].TimeInterval) {
			return &blocks[i]
		}
	}
	return nil
}

// FirstBookingOverlap scans punctual reservations in order and returns the
// first one overlapping the dated candidate, or nil. The reservation with
// excludeID is skipped when re-checking an existing booking.
func FirstBookingOverlap(candidate models.DatedInterval, bookings []models.PunctualReservation, excludeID string) *models.PunctualReservation {
	for i := range bookings {
		if excludeID != "" && bookings[i].ID == excludeID {
			continue
		}
		if candidate.Overlaps(bookings[i].DatedInterval) {
			return &bookings[i]
		}
	}
	return nil
}

// FirstBookingOverlapWeekly scans punctual reservations against a weekly
// candidate: a reservation conflicts when its date falls on the candidate's
// weekday and the spans overlap. Used when a group's recurring schedule is
// replaced and existing one-off bookings occupy the room.
func FirstBookingOverlapWeekly(candidate models.TimeInterval, bookings []models.PunctualReservation, excludeID string) *models.PunctualReservation {
	for i := range bookings {
		if excludeID != "" && bookings[i].ID == excludeID {
			continue
		}
		day, ok := models.WeekdayOf(bookings[i].Date)
		if !ok || day != candidate.Weekday {
			continue
		}
		if candidate.Start < bookings[i].End && bookings[i].Start < candidate.End {
			return &bookings[i]
		}
	}
	return nil
}
