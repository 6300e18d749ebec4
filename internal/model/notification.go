package model

import (
	"fmt"
	"time"
)

// Notification is a message for one user. OccupancyID is set when the
// dispatcher created it for a started occupancy and is unique per occupancy.
type Notification struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"userId"`
	OccupancyID *uint64   `json:"occupancyId,omitempty"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
	Username    string    `json:"username,omitempty"`
}

// OccupancyStartedMessage is the text sent when an occupancy begins.
func OccupancyStartedMessage(classroomName string) string {
	return fmt.Sprintf("Your occupancy for classroom %s has started.", classroomName)
}
