package models

import "time"

// SourceRecord is a de-duplicated publisher entity shown to readers. Two
// records never share a name or a site URL; the resolver looks up by name
// first, then by site URL, and only creates when both miss.
type SourceRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SiteURL     string    `json:"site_url"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Language    string    `json:"language"`
	Reliability float64   `json:"reliability"` // 0-1 scale, drives model tier selection
	CreatedAt   time.Time `json:"created_at"`
}
