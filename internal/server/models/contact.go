package models

import "time"

// Contact is a row of the contacts table. Every contact has exactly one
// owner; Telefone is unique per owner.
type Contact struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Nome      string    `json:"nome"`
	Telefone  string    `json:"telefone"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
