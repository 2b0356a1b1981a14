package client

import "strings"

// User-facing messages surfaced in RequestStatus.Message.
const (
	InvalidURLMessage = "Invalid Spotify URL. Please check the URL and try again."
	FallbackMessage   = "Download failed. Please check the URL and try again."
	TransportMessage  = "An error occurred during the download. Please try again later."
)

// invalidIDMarker is matched against the backend's error prose.
const invalidIDMarker = "invalid id"

// SurfaceMessage maps the message of a backend error body to the text shown
// to the user:
//
//   - any message containing "invalid id" becomes InvalidURLMessage
//   - any other non-empty message is shown verbatim
//   - an empty or missing message becomes FallbackMessage
//
// The first rule is a substring match against server prose, not a structured
// error code, so it silently stops working if the backend rewords the error.
func SurfaceMessage(serverMessage string) string {
	if strings.Contains(serverMessage, invalidIDMarker) {
		return InvalidURLMessage
	}
	if serverMessage == "" {
		return FallbackMessage
	}
	return serverMessage
}
