package core

import "strings"

// FailureCategory groups provider failures for fallback selection.
type FailureCategory string

const (
	FailureAuth    FailureCategory = "auth"
	FailureQuota   FailureCategory = "quota"
	FailureSafety  FailureCategory = "safety"
	FailureTimeout FailureCategory = "timeout"
	FailureUnknown FailureCategory = "unknown"
)

// classificationRules is checked in order; the first rule with a keyword
// contained in the lowercased error text wins.
var classificationRules = []struct {
	category FailureCategory
	keywords []string
}{
	{FailureAuth, []string{"api key", "authentication"}},
	{FailureQuota, []string{"quota", "rate limit"}},
	{FailureSafety, []string{"safety", "blocked"}},
	{FailureTimeout, []string{"timeout", "deadline exceeded"}},
}

// ClassifyFailure maps a failure description to a category.
func ClassifyFailure(text string) FailureCategory {
	lower := strings.ToLower(text)
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return FailureUnknown
}

var fallbackReplies = map[FailureCategory]string{
	FailureAuth:    "I'm having trouble with my API configuration. Please check that the API key is set correctly.",
	FailureQuota:   "I'm temporarily unavailable due to high demand. Please try again in a few moments.",
	FailureSafety:  "I can't provide a response to that request due to safety guidelines. Please try rephrasing your question.",
	FailureTimeout: "I'm taking longer than usual to respond. Please try again.",
	FailureUnknown: "I'm experiencing some technical difficulties right now. Please try again later.",
}

// FallbackReply returns the user-facing sentence for a category. Unrecognized
// categories get the unknown-failure sentence.
func FallbackReply(category FailureCategory) string {
	if reply, ok := fallbackReplies[category]; ok {
		return reply
	}
	return fallbackReplies[FailureUnknown]
}
