package ai

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"lawchat/pkg/chat"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStripANSICodes(t *testing.T) {
	input := "start\x1b[31mred\x1b[0m\x1b]0;title\x07end"
	output := stripANSICodes(input)
	if output != "startredend" {
		t.Fatalf("Expected stripped output, got %q", output)
	}
}

func TestStripANSICodes_LineEndings(t *testing.T) {
	if got := stripANSICodes("a\r\nb\rc\x00"); got != "a\nb\nc" {
		t.Fatalf("Expected normalized line endings, got %q", got)
	}
}

func TestBuildChatMessages_Order(t *testing.T) {
	prior := []chat.Message{
		chat.NewUserMessage("Can I return a faulty kettle?", t0),
		chat.NewAssistantMessage("Yes, within a reasonable time.", t0),
	}

	ctx := BuildChatMessages("system prompt", prior, 20, "What if I lost the receipt?")

	want := []Message{
		{Role: "system", Content: "system prompt"},
		{Role: "user", Content: "Can I return a faulty kettle?"},
		{Role: "assistant", Content: "Yes, within a reasonable time."},
		{Role: "user", Content: "What if I lost the receipt?"},
	}
	if len(ctx.Messages) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(ctx.Messages))
	}
	for i := range want {
		if ctx.Messages[i] != want[i] {
			t.Errorf("Message %d: expected %+v, got %+v", i, want[i], ctx.Messages[i])
		}
	}
	if ctx.Truncated {
		t.Error("Expected no truncation")
	}
}

func TestBuildChatMessages_MaxMessages(t *testing.T) {
	prior := make([]chat.Message, 0, 30)
	for i := 0; i < 30; i++ {
		prior = append(prior, chat.NewUserMessage("msg-"+strconv.Itoa(i), t0))
	}

	ctx := BuildChatMessages("", prior, 20, "new")
	if ctx.Included != 20 {
		t.Fatalf("Expected 20 prior messages, got %d", ctx.Included)
	}
	if ctx.Messages[0].Content != "msg-10" {
		t.Fatalf("Expected oldest kept to be msg-10, got %q", ctx.Messages[0].Content)
	}
	if !ctx.Truncated {
		t.Error("Expected truncation flag")
	}
}

func TestBuildChatMessages_ZeroContext(t *testing.T) {
	prior := []chat.Message{chat.NewUserMessage("old", t0)}
	ctx := BuildChatMessages("sys", prior, 0, "new")
	if len(ctx.Messages) != 2 {
		t.Fatalf("Expected system and user only, got %+v", ctx.Messages)
	}
}

func TestBuildChatMessages_ByteBudget(t *testing.T) {
	big := strings.Repeat("x", DefaultContextBytes/2)
	prior := []chat.Message{
		chat.NewUserMessage(big, t0),
		chat.NewAssistantMessage(big, t0),
		chat.NewUserMessage("recent", t0),
	}

	ctx := BuildChatMessages("", prior, 20, "new")
	if ctx.Included != 2 {
		t.Fatalf("Expected 2 prior messages within budget, got %d", ctx.Included)
	}
	if ctx.Messages[len(ctx.Messages)-2].Content != "recent" {
		t.Fatalf("Expected most recent turn to survive, got %+v", ctx.Messages)
	}
	if !ctx.Truncated {
		t.Error("Expected truncation flag")
	}
}
