package models

import "time"

// License is one key in the finite pool for a software product.
// is_active=true means the key has been consumed by an order (or manually
// activated); the order_licenses join table records which order owns it.
type License struct {
	ID                int        `db:"id" json:"id"`
	SoftwareID        int        `db:"software_id" json:"softwareId"`
	SoftwareVersionID *int       `db:"software_version_id" json:"softwareVersionId,omitempty"`
	LicenseKey        string     `db:"license_key" json:"licenseKey"`
	IsActive          bool       `db:"is_active" json:"isActive"`
	UsedAt            *time.Time `db:"used_at" json:"usedAt,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"-"`

	// Joined fields for list views.
	SoftwareName *string `db:"software_name" json:"softwareName,omitempty"`
	OS           *string `db:"os" json:"os,omitempty"`
	Version      *string `db:"version" json:"version,omitempty"`
}
