// Package recommend asks an OpenAI-compatible chat model for styling advice
// and caches the answers per skin tone, gender and age group.
package recommend

import (
	"fmt"
	"strings"
)

// Query is the profile data a recommendation is generated from
type Query struct {
	// SkinTone is the rendered tone, e.g. "Fair (R=231,G=201,B=190)"
	SkinTone string
	// SkinToneLabel is the bare bucket label used for caching
	SkinToneLabel string
	Gender        string
	AgeGroup      string
}

// CacheKey identifies queries that share a recommendation
func (q Query) CacheKey() string {
	label := q.SkinToneLabel
	if label == "" {
		label = q.SkinTone
	}
	return label + "|" + q.Gender + "|" + q.AgeGroup
}

// BuildPrompt renders the chat prompt for q. The age line is omitted when empty.
func BuildPrompt(q Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Skin Tone: %s\n", q.SkinTone)
	fmt.Fprintf(&b, "Gender: %s\n", q.Gender)
	if q.AgeGroup != "" {
		fmt.Fprintf(&b, "Age Group: %s\n", q.AgeGroup)
	}
	b.WriteString(`
Provide:
- Dress Codes (Formal, Casual, Party, Business)
- Outfit combinations
- Hairstyle suggestions
- Accessories
- Color palette
- Why it works for their skin tone
`)
	return b.String()
}
