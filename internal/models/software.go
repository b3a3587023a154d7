package models

import "time"

// Software represents a sellable software product in the catalog.
// RequiresLicense controls whether fulfillment must draw keys from the
// license pool; SearchByVersion controls whether the pool is scoped to a
// specific version.
type Software struct {
	ID              int       `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	RequiresLicense bool      `db:"requires_license" json:"requiresLicense"`
	SearchByVersion bool      `db:"search_by_version" json:"searchByVersion"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
