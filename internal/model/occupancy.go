package model

import "time"

// OccupancyStatus is the lifecycle state of an occupancy row.
type OccupancyStatus string

const (
	OccupancyOccupied  OccupancyStatus = "occupied"
	OccupancyReleased  OccupancyStatus = "released"
	OccupancyCancelled OccupancyStatus = "cancelled"
)

// ParseOccupancyStatus accepts the known statuses; empty means occupied.
func ParseOccupancyStatus(s string) (OccupancyStatus, bool) {
	switch OccupancyStatus(s) {
	case "":
		return OccupancyOccupied, true
	case OccupancyOccupied, OccupancyReleased, OccupancyCancelled:
		return OccupancyStatus(s), true
	}
	return "", false
}

// Occupancy is a realized claim on a classroom, normally produced by
// promoting a due Reservation.
type Occupancy struct {
	ID            uint64          `json:"id"`
	ClassroomID   uint64          `json:"classroomId"`
	UserID        uint64          `json:"userId"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       time.Time       `json:"endTime"`
	Status        OccupancyStatus `json:"status"`
	NotifiedAt    *time.Time      `json:"notifiedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Username      string          `json:"username,omitempty"`
	ClassroomName string          `json:"classroomName,omitempty"`
}
