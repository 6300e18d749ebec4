// Package queue carries promotion events over RabbitMQ: a publisher used by
// the promotion job and a consumer that keeps an append-only audit log.
package queue

// ReservationPromotedEvent is published after a reservation became an
// occupancy. It is self-contained so consumers never need the database.
type ReservationPromotedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	OccupancyID   uint64 `json:"occupancy_id"`
	ClassroomID   uint64 `json:"classroom_id"`
	UserID        uint64 `json:"user_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	PromotedAt    string `json:"promoted_at"`
}
