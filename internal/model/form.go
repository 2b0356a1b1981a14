package model

import (
	"fmt"
	"strings"
)

// Mode is the kind of download the user asked for
type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// DefaultMode is the mode selected when the form is first shown
const DefaultMode = ModeVideo

// ParseMode parses a mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeVideo:
		return ModeVideo, nil
	case ModeAudio:
		return ModeAudio, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Quality is the video resolution preference. Values are the wire form
// understood by the backend.
type Quality string

const (
	QualityHighest Quality = "Highest"
	Quality1080    Quality = "1080px"
	Quality720     Quality = "720px"
	Quality480     Quality = "480px"
	Quality360     Quality = "360px"
	QualityLowest  Quality = "Lowest"
)

// DefaultQuality is the quality selected when the form is first shown
const DefaultQuality = Quality1080

// Qualities lists every quality in display order
var Qualities = []Quality{
	QualityHighest,
	Quality1080,
	Quality720,
	Quality480,
	Quality360,
	QualityLowest,
}

// ParseQuality accepts the wire values plus the "1080p" spelling.
func ParseQuality(s string) (Quality, error) {
	v := strings.TrimSpace(s)
	lv := strings.ToLower(v)
	if strings.HasSuffix(lv, "p") && !strings.HasSuffix(lv, "px") {
		lv += "x"
	}
	for _, q := range Qualities {
		if strings.ToLower(string(q)) == lv {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown quality %q", s)
}

// FormState is a snapshot of the download form
type FormState struct {
	URL     string
	Mode    Mode
	Quality Quality
}
