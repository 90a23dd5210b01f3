package llm

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/go-postgen/internal/domain"
)

// Mock is a deterministic Generator for local development and tests. It
// never calls a model: the same prompt always yields the same text.
type Mock struct{}

var mockOpeners = map[string]string{
	string(domain.ApproachDirect):        "Here is the short version:",
	string(domain.ApproachStorytelling):  "Last week something happened that changed how I think about this.",
	string(domain.ApproachDataDriven):    "3 numbers tell the whole story.",
	string(domain.ApproachEmotional):     "I'll be honest, this one matters to me.",
	string(domain.IterationHook):         "Stop scrolling for a second.",
	string(domain.IterationCasual):       "Okay so,",
	string(domain.IterationProfessional): "We are pleased to share an update.",
}

func (Mock) Complete(ctx context.Context, p Prompt) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	body := strings.TrimSpace(p.Subject)

	var text string
	switch p.Label {
	case string(domain.IterationShorter):
		text = firstSentence(body)
	case string(domain.IterationLonger):
		text = body + "\n\nHere is why it matters: the details add up."
	default:
		if opener, ok := mockOpeners[p.Label]; ok {
			text = opener + "\n\n" + dropOpener(body)
		} else if p.Label == "feedback" {
			text = body + "\n\n(Revised.)"
		} else {
			text = body
		}
	}
	text = truncateRunes(text, p.MaxChars)

	pt := len(strings.Fields(p.System)) + len(strings.Fields(p.User))
	ct := len(strings.Fields(text))
	return Completion{
		Text:  text,
		Usage: domain.TokenUsage{PromptTokens: pt, CompletionTokens: ct, TotalTokens: pt + ct},
	}, nil
}

// dropOpener removes a leading paragraph that a previous mock pass added,
// so repeated iterations do not stack openers.
func dropOpener(s string) string {
	for _, o := range mockOpeners {
		if rest, ok := strings.CutPrefix(s, o+"\n\n"); ok {
			return rest
		}
	}
	return s
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?"); i >= 0 && i < len(s)-1 {
		return s[:i+1]
	}
	words := strings.Fields(s)
	if len(words) > 1 {
		return strings.Join(words[:(len(words)+1)/2], " ")
	}
	return s
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
