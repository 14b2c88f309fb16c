package models

import "time"

// RoomKind distinguishes ordinary classrooms from laboratories.
type RoomKind string

const (
	RoomKindClassroom  RoomKind = "CLASSROOM"
	RoomKindLaboratory RoomKind = "LABORATORY"
)

// Room is a bookable teaching space.
type Room struct {
	ID   string   `db:"id" json:"id"`
	Kind RoomKind `db:"kind" json:"kind"`
}

// PunctualReservation is a one-off room booking on a calendar date. It is
// owned by the requester+room pair: a change is a cancel plus a new booking,
// never an update in place, and calendar edits never cascade into it.
type PunctualReservation struct {
	ID          string `db:"id" json:"id"`
	RoomID      string `db:"room_id" json:"room_id"`
	RequesterID string `db:"requester_id" json:"requester_id"`
	DatedInterval

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	RoomID      string
	RequesterID string
	From        time.Time
	To          time.Time
	Page        int
	PageSize    int
}
