package models

import "time"

// SoftwareVersion is a downloadable build of a software product, keyed by
// (software_id, os, version).
type SoftwareVersion struct {
	ID           int       `db:"id" json:"id"`
	SoftwareID   int       `db:"software_id" json:"softwareId"`
	OS           string    `db:"os" json:"os"`
	Version      string    `db:"version" json:"version"`
	DownloadLink string    `db:"download_link" json:"downloadLink"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`

	// Joined field for list views.
	SoftwareName *string `db:"software_name" json:"softwareName,omitempty"`
}
