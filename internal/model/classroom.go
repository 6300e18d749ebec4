package model

import "time"

// Classroom is a bookable room. FloorID and BuildingID place it in the campus
// hierarchy; FloorName and BuildingName are filled by listing queries.
type Classroom struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	FloorID      uint64    `json:"floorId"`
	BuildingID   uint64    `json:"buildingId"`
	Capacity     *uint32   `json:"capacity,omitempty"`
	FloorName    string    `json:"floorName,omitempty"`
	BuildingName string    `json:"buildingName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
