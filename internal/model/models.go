package model

import "time"

// DownloadRequest is the JSON body accepted by POST /download
type DownloadRequest struct {
	URL        string `json:"url"`
	OutputPath string `json:"output_path"`
	Quality    string `json:"quality"`
	Type       string `json:"type"`
}

// ErrorResponse is the JSON body returned on a failed download
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Track is a single catalog entry resolved from a Spotify URL
type Track struct {
	Name   string
	Artist string
}

// Query returns the free-text form used to look the track up on YouTube
func (t Track) Query() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " " + t.Name
}

// DownloadedFile tracks produced files for cleanup
type DownloadedFile struct {
	ID        string
	Filename  string
	FilePath  string
	Dir       string // job directory removed together with the file
	Size      int64
	CreatedAt time.Time
	ExpiresAt time.Time // zero means never
	URL       string
}
