package auth

import "github.com/google/uuid"

// Identity is the admin resolved from a bearer token. Holding one is the
// capability to call admin operations; it is never re-checked downstream.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (i Identity) Valid() bool {
	return i.ID != uuid.Nil
}
