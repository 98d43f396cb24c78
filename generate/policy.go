package generate

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/core"
)

// Policy selects what the model adds after a successful answer.
type Policy string

const (
	// PolicyNone adds nothing.
	PolicyNone Policy = "none"
	// PolicyFollowUpQuestions adds three follow-up questions.
	PolicyFollowUpQuestions Policy = "follow-up-questions"
	// PolicyContactForm adds follow-up questions and points purchase
	// enquiries at a contact form.
	PolicyContactForm Policy = "contact-form"
)

// ParsePolicy converts a configuration value into a Policy.
// The empty string selects PolicyNone.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyNone, nil
	case PolicyNone, PolicyFollowUpQuestions, PolicyContactForm:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown follow-up policy %q", core.ErrConfiguration, s)
	}
}

// instructions returns the extra instruction lines for the policy.
func (p Policy) instructions(formURL string) string {
	followUps := "- Only if the context contains relevant information, finish with 3 follow-up questions that are relevant, specific and based solely on the context. Format them as a numbered list."

	switch p {
	case PolicyFollowUpQuestions:
		return followUps
	case PolicyContactForm:
		return followUps + "\n" +
			"- If the user asks how to purchase a product, do not generate follow-up questions. Instead ask them to fill out the enquiry form at " + formURL + " and say a representative will contact them shortly after submission.\n" +
			"- Do not ask for name, company or designation in the chat. Only collect them via the form."
	default:
		return "- Do not add follow-up questions."
	}
}
