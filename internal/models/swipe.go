package models

import (
	"time"

	"github.com/google/uuid"
)

// Swipe directions.
const (
	SwipeLeft  = "left"
	SwipeRight = "right"
)

// Swipe is a directed, immutable like/pass decision.
// At most one swipe exists per ordered (swiper, target) pair.
type Swipe struct {
	ID        uuid.UUID `json:"id"`
	SwiperID  uuid.UUID `json:"swiper_id"`
	TargetID  uuid.UUID `json:"target_id"`
	Direction string    `json:"direction"`
	CreatedAt time.Time `json:"created_at"`
}
