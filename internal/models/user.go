package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the owner record a caller identity resolves to. ExternalID is the
// subject issued by the identity provider.
type User struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}
