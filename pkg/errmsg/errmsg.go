// Package errmsg turns transport failures into the text shown to the user.
package errmsg

import (
	"errors"
	"net/http"
	"strings"

	"lawchat/pkg/transport"
)

const (
	RateLimited    = "API rate limit exceeded. Please wait a moment and try again."
	HighDemand     = "The AI service is currently experiencing high demand. Please wait a minute and try again."
	ProcessingFail = "An error occurred processing your request. Please try again."
	SendFailed     = "Failed to send message. Please try again."
	Unreachable    = "Unable to reach the server. Please check your internet connection."
)

// Notifications for the clear intent.
const (
	HistoryCleared     = "Chat history cleared"
	HistoryClearFailed = "Failed to clear chat history"
)

var demandMarkers = []string{"quota", "rate limit"}

// Classify maps any error to exactly one user-facing message. Unknown errors
// get the generic send failure.
func Classify(err error) string {
	var (
		rateErr    *transport.RateLimitError
		serviceErr *transport.ServiceError
		networkErr *transport.NetworkError
	)

	switch {
	case errors.As(err, &rateErr):
		return RateLimited
	case errors.As(err, &serviceErr):
		if serviceErr.Status == http.StatusInternalServerError {
			if mentionsDemand(serviceErr.Detail) {
				return HighDemand
			}
			return ProcessingFail
		}
		return SendFailed
	case errors.As(err, &networkErr):
		return Unreachable
	default:
		return SendFailed
	}
}

func mentionsDemand(detail string) bool {
	lower := strings.ToLower(detail)
	for _, marker := range demandMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
