package llm

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-postgen/internal/domain"
)

// Prompt is the message pair sent to a model. Subject, Label and MaxChars
// repeat the key inputs in structured form for providers that do not call
// a model.
type Prompt struct {
	System   string
	User     string
	Subject  string // raw idea, or the text being revised
	Label    string // approach or iteration type
	MaxChars int    // 0 = unbounded
}

// Brief is everything a first draft is written from.
type Brief struct {
	Profile  domain.Profile
	Platform *domain.Platform
	Project  *domain.Project
	Goal     string
	RawIdea  string
	Approach domain.Approach
}

var approachGuides = map[domain.Approach]string{
	domain.ApproachDirect:       "Get straight to the point in the first sentence.",
	domain.ApproachStorytelling: "Open with a short personal story that leads to the point.",
	domain.ApproachDataDriven:   "Lead with a concrete number or fact and build on it.",
	domain.ApproachEmotional:    "Speak to how the reader feels before making the point.",
}

const systemPrompt = "You write social media posts. Reply with the post text only, no preamble."

// DraftPrompt builds the prompt for a new post.
func DraftPrompt(b Brief) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a post in the voice of %q.\n", b.Profile.Name)
	if b.Profile.Tone != "" {
		fmt.Fprintf(&sb, "- Tone: %s.\n", b.Profile.Tone)
	}
	if b.Profile.Audience != "" {
		fmt.Fprintf(&sb, "- Audience: %s.\n", b.Profile.Audience)
	}
	if b.Profile.Description != "" {
		fmt.Fprintf(&sb, "- About the author: %s\n", b.Profile.Description)
	}
	limit := 0
	if b.Platform != nil {
		fmt.Fprintf(&sb, "- Platform: %s.\n", b.Platform.Name)
		if b.Platform.MaxLength > 0 {
			limit = b.Platform.MaxLength
			fmt.Fprintf(&sb, "- Stay under %d characters.\n", limit)
		}
	}
	if b.Project != nil {
		fmt.Fprintf(&sb, "- Project: %s. %s\n", b.Project.Name, b.Project.Description)
	}
	if b.Goal != "" {
		fmt.Fprintf(&sb, "- Goal: %s.\n", b.Goal)
	}
	if g, ok := approachGuides[b.Approach]; ok {
		fmt.Fprintf(&sb, "- %s\n", g)
	}
	fmt.Fprintf(&sb, "\nIdea:\n%s", strings.TrimSpace(b.RawIdea))

	return Prompt{
		System:   systemPrompt,
		User:     sb.String(),
		Subject:  strings.TrimSpace(b.RawIdea),
		Label:    string(b.Approach),
		MaxChars: limit,
	}
}

// RevisionPrompt builds the prompt for revising current per instruction.
// label names the iteration type, or "feedback" for free-form requests.
func RevisionPrompt(current, instruction, label string, platform *domain.Platform) Prompt {
	var sb strings.Builder
	sb.WriteString("Revise the post below. Change only what the request asks for.\n")
	limit := 0
	if platform != nil && platform.MaxLength > 0 {
		limit = platform.MaxLength
		fmt.Fprintf(&sb, "- Stay under %d characters.\n", limit)
	}
	fmt.Fprintf(&sb, "\nRequest:\n%s\n\nPost:\n%s", strings.TrimSpace(instruction), current)

	return Prompt{
		System:   systemPrompt,
		User:     sb.String(),
		Subject:  current,
		Label:    label,
		MaxChars: limit,
	}
}
