package usecase

import "strings"

// greetings is the fixed casual vocabulary. Matching is exact after
// normalization; no fuzzy or partial matching.
var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "good morning": {},
	"good afternoon": {}, "good evening": {}, "good night": {},
	"howdy": {}, "greetings": {}, "sup": {}, "yo": {}, "hola": {},
	"bonjour": {}, "thanks": {}, "thank you": {}, "bye": {},
	"goodbye": {}, "see you": {}, "ok": {}, "okay": {},
}

// IsCasualMessage reports whether a question is a greeting or similar
// small talk that needs no retrieval. Normalization: lowercase, trim,
// strip trailing punctuation. Casual if the whole normalized string is
// in the vocabulary, or it has at most two tokens and the first token is.
func IsCasualMessage(question string) bool {
	cleaned := strings.TrimRight(strings.TrimSpace(strings.ToLower(question)), "!?.,")
	if _, ok := greetings[cleaned]; ok {
		return true
	}
	fields := strings.Fields(cleaned)
	if len(fields) == 0 || len(fields) > 2 {
		return false
	}
	_, ok := greetings[fields[0]]
	return ok
}
