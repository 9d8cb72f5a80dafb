package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the metadata the ranker and portfolio rollups need about a
// customer account.
type Account struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	OwnerID         string          `json:"owner_id"`
	Tier            string          `json:"tier"`
	ARR             decimal.Decimal `json:"arr"`
	RenewalDate     *time.Time      `json:"renewal_date,omitempty"`
	ContactDeadline *time.Time      `json:"contact_deadline,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
