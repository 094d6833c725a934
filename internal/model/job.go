package model

import "time"

// IngestJob tracks progress of one pipeline run. Flags only move forward.
type IngestJob struct {
	ID                   string     `json:"id"`
	PropertyID           string     `json:"property_id"`
	GeocodeDone          bool       `json:"geocode_done"`
	LocationInsightsDone bool       `json:"location_insights_done"`
	PhotoAnalysisDone    bool       `json:"photo_analysis_done"`
	CertificateDone      bool       `json:"certificate_done"`
	CertificateID        *string    `json:"certificate_id,omitempty"`
	ErrorMessage         string     `json:"error_message,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// JobUpdate is a partial update of an ingest job.
type JobUpdate struct {
	GeocodeDone          *bool
	LocationInsightsDone *bool
	PhotoAnalysisDone    *bool
	CertificateDone      *bool
	CertificateID        *string
	ErrorMessage         *string
	CompletedAt          *time.Time
}
