package ai

import (
	"strings"

	"lawchat/pkg/chat"
)

const (
	DefaultContextMessages = 20
	DefaultContextBytes    = 48000
)

// ConversationContext contains the prompt assembled for one reply.
type ConversationContext struct {
	Messages  []Message
	Included  int
	Truncated bool
}

// BuildChatMessages assembles the system prompt, the most recent prior turns
// (at most maxMessages, and at most DefaultContextBytes of text) and the new
// user message. Prior turns are dropped oldest first.
func BuildChatMessages(systemPrompt string, prior []chat.Message, maxMessages int, text string) ConversationContext {
	limited := limitMessages(prior, maxMessages)
	truncated := len(limited) < len(prior)

	budget := DefaultContextBytes - len(systemPrompt) - len(text)
	start := len(limited)
	for start > 0 {
		size := len(limited[start-1].Text)
		if size > budget {
			truncated = true
			break
		}
		budget -= size
		start--
	}
	limited = limited[start:]

	messages := make([]Message, 0, len(limited)+2)
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: prompt})
	}
	for _, m := range limited {
		messages = append(messages, Message{Role: string(m.Role), Content: sanitizeText(m.Text)})
	}
	messages = append(messages, Message{Role: string(chat.RoleUser), Content: sanitizeText(text)})

	return ConversationContext{
		Messages:  messages,
		Included:  len(limited),
		Truncated: truncated,
	}
}

func limitMessages(msgs []chat.Message, maxMessages int) []chat.Message {
	if maxMessages <= 0 {
		return nil
	}
	if len(msgs) <= maxMessages {
		return msgs
	}
	return msgs[len(msgs)-maxMessages:]
}

// sanitizeText removes terminal escape sequences and control characters that
// pasted text can carry.
func sanitizeText(s string) string {
	return strings.ToValidUTF8(stripANSICodes(s), "")
}

func stripANSICodes(s string) string {
	if s == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == 0x1b { // ESC
			if i+1 >= len(s) {
				continue
			}
			next := s[i+1]
			switch next {
			case '[': // CSI
				i += 2
				for i < len(s) {
					ch = s[i]
					if ch >= 0x40 && ch <= 0x7E {
						break
					}
					i++
				}
			case ']': // OSC
				i += 2
				for i < len(s) {
					if s[i] == 0x07 {
						break
					}
					if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '\\' {
						i++
						break
					}
					i++
				}
			default:
				i++
			}
			continue
		}

		if ch == '\r' {
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			sb.WriteByte('\n')
			continue
		}
		if ch < 0x20 && ch != '\n' && ch != '\t' {
			continue
		}
		sb.WriteByte(ch)
	}

	return sb.String()
}
