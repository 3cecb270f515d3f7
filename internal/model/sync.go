package model

import "time"

// SyncResult summarises one ingestion run.
type SyncResult struct {
	ID            string    `json:"id,omitempty"`
	ZipCode       string    `json:"zip_code"`
	Count         int       `json:"count"`
	Message       string    `json:"message"`
	Stores        []string  `json:"stores,omitempty"`
	FlyersSeen    int       `json:"flyers_seen"`
	FlyersMatched int       `json:"flyers_matched"`
	FlyersFailed  int       `json:"flyers_failed"`
	Purged        int64     `json:"purged"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Error         string    `json:"error,omitempty"`
}
