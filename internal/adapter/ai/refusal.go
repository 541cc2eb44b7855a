package ai

import "strings"

// refusalIndicators are phrases models use when declining a request instead
// of producing the asked-for JSON.
var refusalIndicators = []string{
	"i'm sorry", "i am sorry", "i cannot", "i can't", "i'm unable",
	"i am unable", "i apologize", "unfortunately", "i'm afraid",
	"i don't have access", "as an ai", "policy", "guidelines",
}

// IsRefusal reports whether a model response looks like a refusal rather
// than an answer. Responses that contain a JSON object are never treated as
// refusals; a model that apologizes and still emits the payload counts as a
// success.
func IsRefusal(response string) bool {
	if strings.ContainsAny(response, "{[") {
		return false
	}
	lower := strings.ToLower(response)
	for _, indicator := range refusalIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
