package model

import "time"

// VideoMetadata is what the suitability filter needs to know about a video.
type VideoMetadata struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	LiveBroadcastContent string        `json:"live_broadcast_content"`
	CategoryID           string        `json:"category_id"`
	Duration             time.Duration `json:"duration"`
	PrivacyStatus        string        `json:"privacy_status"`
	ViewCount            uint64        `json:"view_count"`
}

// Candidate is a video accepted by the search filter.
type Candidate struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// SearchPage is one page of search ids.
type SearchPage struct {
	VideoIDs      []string
	NextPageToken string
}

// TranscriptEntry is one caption line.
type TranscriptEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}
