// Package types provides type definitions for structured data used throughout the applypilot system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// PromptKind distinguishes long-answer from short-answer fields
type PromptKind string

const (
	// PromptLongAnswer is a free-text field such as a textarea
	PromptLongAnswer PromptKind = "long_answer"
	// PromptShortAnswer is a single-line input
	PromptShortAnswer PromptKind = "short_answer"
)

// FormPrompt identifies one discovered form field. Prompts live only for one
// navigate -> discover -> fill cycle and are never persisted.
type FormPrompt struct {
	Key     string     `json:"key"`
	Kind    PromptKind `json:"kind"`
	Ordinal int        `json:"ordinal"` // 1-based visible DOM position at discovery time
}

// SyntheticKey returns the fallback key for an unlabeled field at ordinal n.
func SyntheticKey(n int) string {
	return fmt.Sprintf("question_%d", n)
}

// PromptKeys returns the keys of prompts in order.
func PromptKeys(prompts []FormPrompt) []string {
	keys := make([]string, len(prompts))
	for i, p := range prompts {
		keys[i] = p.Key
	}
	return keys
}

// DraftedAnswers maps prompt keys to answer text
type DraftedAnswers map[string]string

// Lookup finds a non-blank answer by exact key, then by lowercased key.
func (a DraftedAnswers) Lookup(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	if v := strings.TrimSpace(a[key]); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(a[strings.ToLower(key)]); v != "" {
		return v, true
	}
	return "", false
}
