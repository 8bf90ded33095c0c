package models

import "time"

// Bulletin is one space-weather bulletin shown on the index page.
type Bulletin struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary,omitempty"`
}
