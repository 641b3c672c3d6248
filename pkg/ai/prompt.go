package ai

import (
	"fmt"
	"os"
	"strings"
)

// LegalSystemPrompt is the default instruction for the consumer-protection
// assistant.
const LegalSystemPrompt = `You are a knowledgeable legal assistant specializing in consumer protection law.
You provide accurate, helpful information about consumer rights, warranties, refunds, fraud protection,
contract disputes, product liability, and all aspects of consumer protection legislation.

Your role is to:
- Answer questions clearly and comprehensively about consumer protection laws
- Explain consumer rights in various situations
- Provide guidance on how consumers can protect themselves
- Explain legal concepts in simple, understandable terms
- Cover topics including but not limited to: refunds, warranties, fraud, unfair practices, contract terms,
  product safety, data protection, online purchases, and dispute resolution

Always provide thorough, accurate information while being clear that you're providing general legal information,
not personalized legal advice. Answer every question the user asks related to consumer protection.`

// LoadSystemPrompt returns the prompt stored at path, or LegalSystemPrompt
// when path is empty.
func LoadSystemPrompt(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return LegalSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("system prompt %s is empty", path)
	}
	return prompt, nil
}
