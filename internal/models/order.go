package models

import "time"

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProcessed OrderStatus = "processed"
)

// Order records one fulfillment. ItemName/OS/Version are denormalized from
// the request; the licenses granted to the order live in order_licenses.
type Order struct {
	ID           int         `db:"id" json:"id"`
	OrderID      string      `db:"order_id" json:"orderId"`
	ItemName     string      `db:"item_name" json:"itemName"`
	OS           string      `db:"os" json:"os"`
	Version      string      `db:"version" json:"version"`
	LicenseCount int         `db:"license_count" json:"licenseCount"`
	Status       OrderStatus `db:"status" json:"status"`
	SoftwareID   *int        `db:"software_id" json:"softwareId,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`

	// Licenses linked through order_licenses, populated on list/detail reads.
	Licenses []License `db:"-" json:"licenses,omitempty"`
}

// OrderLicense is the join row tying one license key to the order that
// claimed it. It is the single source of truth for key ownership.
type OrderLicense struct {
	OrderID   int `db:"order_id" json:"orderId"`
	LicenseID int `db:"license_id" json:"licenseId"`
}
