package errmsg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lawchat/pkg/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit", &transport.RateLimitError{Op: "post message"}, RateLimited},
		{"rate limit with detail", &transport.RateLimitError{Detail: "quota"}, RateLimited},
		{"quota exceeded", &transport.ServiceError{Status: 500, Detail: "quota exceeded"}, HighDemand},
		{"rate limit detail upper", &transport.ServiceError{Status: 500, Detail: "Chat error: Rate Limit reached"}, HighDemand},
		{"bad json", &transport.ServiceError{Status: 500, Detail: "bad json"}, ProcessingFail},
		{"500 no detail", &transport.ServiceError{Status: 500}, ProcessingFail},
		{"forbidden", &transport.ServiceError{Status: 403}, SendFailed},
		{"bad gateway quota", &transport.ServiceError{Status: 502, Detail: "quota"}, SendFailed},
		{"malformed ok", &transport.ServiceError{Status: 200, Detail: "malformed response: empty reply"}, SendFailed},
		{"network", &transport.NetworkError{Op: "post message", Err: errors.New("refused")}, Unreachable},
		{"network timeout", &transport.NetworkError{Err: context.DeadlineExceeded}, Unreachable},
		{"wrapped service", fmt.Errorf("send: %w", &transport.ServiceError{Status: 500, Detail: "quota"}), HighDemand},
		{"unknown", errors.New("something else"), SendFailed},
		{"nil", nil, SendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
