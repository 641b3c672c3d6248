package history

import (
	"encoding/json"
	"testing"
	"time"

	"lawchat/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRecords(t *testing.T, recs ...Record) []string {
	t.Helper()
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		data, err := json.Marshal(r)
		require.NoError(t, err)
		out = append(out, string(data))
	}
	return out
}

func TestStaleHead(t *testing.T) {
	cutoff := base.Add(time.Hour)
	items := encodeRecords(t,
		rec("s", chat.RoleUser, "old q", 0),
		rec("s", chat.RoleAssistant, "old a", time.Minute),
		rec("s", chat.RoleUser, "new q", 2*time.Hour),
		rec("s", chat.RoleAssistant, "new a", 2*time.Hour+time.Minute),
	)

	tests := []struct {
		name   string
		items  []string
		before time.Time
		want   int
	}{
		{"empty list", nil, cutoff, 0},
		{"stale head trimmed", items, cutoff, 2},
		{"all stale", items, base.Add(24 * time.Hour), 4},
		{"nothing stale", items, base, 0},
		{"record at cutoff kept", items, base.Add(time.Minute), 1},
		{"undecodable counts as stale", append([]string{"not json"}, items[2:]...), cutoff, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, staleHead(tt.items, tt.before))
		})
	}
}
