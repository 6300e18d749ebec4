package model

import "time"

// Reservation is a future-dated claim on a classroom. It lives until it is
// deleted, edited away, or promoted into an Occupancy.
//
// Fields:
//  ClassroomID, UserID – the booked room and the owner.
//  StartTime, EndTime  – half-open window [StartTime, EndTime), UTC.
//  Username, Email     – owner display data, filled by listing queries.
//  ClassroomName       – room display name, filled by listing queries.
type Reservation struct {
	ID            uint64    `json:"id"`
	ClassroomID   uint64    `json:"classroomId"`
	UserID        uint64    `json:"userId"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	ClassroomName string    `json:"classroomName,omitempty"`
}

// IntervalFilter narrows interval listings. Zero values mean "no filter".
type IntervalFilter struct {
	UserID      uint64
	ClassroomID uint64
	From        *time.Time // start_time >= From
	To          *time.Time // end_time <= To
	Limit       int
	Offset      int
}
