package generate

import "strings"

const (
	// NotFoundSentinel is the exact reply the model is instructed to give
	// when the context cannot answer the question.
	NotFoundSentinel = "I couldn't find this info"

	// ErrorSentinel prefixes error text surfaced to end users.
	ErrorSentinel = "Error:"

	notFoundPrefix = "I couldn't find this"
)

// Outcome classifies a complete generated answer.
type Outcome int

const (
	// OutcomeAnswer is a usable answer.
	OutcomeAnswer Outcome = iota
	// OutcomeNotFound is the model declining for lack of context.
	OutcomeNotFound
	// OutcomeError is text that starts with ErrorSentinel.
	OutcomeError
	// OutcomeEmpty is blank output.
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswer:
		return "answer"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeError:
		return "error"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Cacheable reports whether an answer with this outcome may be stored.
func (o Outcome) Cacheable() bool {
	return o == OutcomeAnswer
}

// Classify decides the outcome of text by prefix, ignoring leading
// whitespace and accepting a typographic apostrophe in the not-found reply.
func Classify(text string) Outcome {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if trimmed == "" {
		return OutcomeEmpty
	}
	if strings.HasPrefix(trimmed, ErrorSentinel) {
		return OutcomeError
	}
	normalized := strings.ReplaceAll(trimmed, "’", "'")
	if strings.HasPrefix(normalized, notFoundPrefix) {
		return OutcomeNotFound
	}
	return OutcomeAnswer
}
