package ai

import (
	"errors"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// IsRateLimited reports whether err is an upstream 429 from either SDK.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode == http.StatusTooManyRequests
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code == http.StatusTooManyRequests
	}
	var genaiErrPtr *genai.APIError
	if errors.As(err, &genaiErrPtr) && genaiErrPtr != nil {
		return genaiErrPtr.Code == http.StatusTooManyRequests
	}

	return false
}
