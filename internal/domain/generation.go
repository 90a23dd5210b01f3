package domain

import (
	"errors"
	"strings"
)

// Validation errors for generation and iteration requests.
var (
	ErrProfileRequired = errors.New("profileId is required")
	ErrRawIdeaRequired = errors.New("rawIdea is required")
	ErrIterationInput  = errors.New("exactly one of feedback or iterationType is required")
	ErrIterationType   = errors.New("unknown iterationType")
)

// Approach is the writing strategy of one variant in an N-way batch.
type Approach string

const (
	ApproachDirect       Approach = "direct"
	ApproachStorytelling Approach = "storytelling"
	ApproachDataDriven   Approach = "data-driven"
	ApproachEmotional    Approach = "emotional"
)

// Approaches lists every approach in the order variants are produced.
var Approaches = []Approach{ApproachDirect, ApproachStorytelling, ApproachDataDriven, ApproachEmotional}

// Variant batch bounds.
const (
	MinVariants = 2
	MaxVariants = 4
)

// GenerateRequest is the input of a generation. The client keeps the last
// one to support regenerate.
type GenerateRequest struct {
	ProfileID  string  `json:"profileId"`
	ProjectID  *string `json:"projectId,omitempty"`
	PlatformID *string `json:"platformId,omitempty"`
	Goal       string  `json:"goal,omitempty"`
	RawIdea    string  `json:"rawIdea"`
}

// Validate checks required fields.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.ProfileID) == "" {
		return ErrProfileRequired
	}
	if strings.TrimSpace(r.RawIdea) == "" {
		return ErrRawIdeaRequired
	}
	return nil
}

// GenerateBody is the POST /generate payload. Variants >= 2 selects the
// variants mode.
type GenerateBody struct {
	GenerateRequest
	Variants int `json:"variants,omitempty"`
}

// GenerationContext echoes the reference data the text was generated from.
type GenerationContext struct {
	Profile  string `json:"profile"`
	Platform string `json:"platform,omitempty"`
	Project  string `json:"project,omitempty"`
	Goal     string `json:"goal,omitempty"`
}

// VariantData is one member of a batch generated from the same inputs.
type VariantData struct {
	PostID        string     `json:"postId"`
	VersionID     string     `json:"versionId"`
	VersionNumber int        `json:"versionNumber"`
	GeneratedText string     `json:"generatedText"`
	Approach      Approach   `json:"approach"`
	Format        string     `json:"format"`
	Usage         TokenUsage `json:"usage"`
}

// GenerateData is the data member of a generation response. Single mode
// fills Post and Version; variants mode fills Variants.
type GenerateData struct {
	Post     *Post              `json:"post,omitempty"`
	Version  *PostVersion       `json:"version,omitempty"`
	Variants []VariantData      `json:"variants,omitempty"`
	Context  *GenerationContext `json:"context,omitempty"`
}

// GenerateResponse is the body of POST /generate.
type GenerateResponse struct {
	Message   string           `json:"message,omitempty"`
	Data      GenerateData     `json:"data"`
	RateLimit *RateLimitStatus `json:"rateLimit,omitempty"`
}

// IterationType is a fixed rewrite instruction.
type IterationType string

const (
	IterationShorter      IterationType = "shorter"
	IterationLonger       IterationType = "longer"
	IterationCasual       IterationType = "casual"
	IterationProfessional IterationType = "professional"
	IterationHook         IterationType = "hook"
)

// Instruction returns the rewrite prompt for t, or "" when t is unknown.
func (t IterationType) Instruction() string {
	switch t {
	case IterationShorter:
		return "Make it shorter and tighter while keeping the key message."
	case IterationLonger:
		return "Expand it with more detail and a concrete example."
	case IterationCasual:
		return "Rewrite it in a more casual, conversational tone."
	case IterationProfessional:
		return "Rewrite it in a more professional tone."
	case IterationHook:
		return "Rewrite the opening line into a stronger hook."
	default:
		return ""
	}
}

// IterateRequest asks for a new version derived from the selected one,
// either from free-form feedback or from a fixed iteration type.
type IterateRequest struct {
	Feedback      string        `json:"feedback,omitempty"`
	IterationType IterationType `json:"iterationType,omitempty"`
}

// Validate requires exactly one of Feedback and IterationType.
func (r IterateRequest) Validate() error {
	hasFeedback := strings.TrimSpace(r.Feedback) != ""
	hasType := r.IterationType != ""
	if hasFeedback == hasType {
		return ErrIterationInput
	}
	if hasType && r.IterationType.Instruction() == "" {
		return ErrIterationType
	}
	return nil
}

// Prompt returns the instruction stored as the version's iteration prompt.
func (r IterateRequest) Prompt() string {
	if fb := strings.TrimSpace(r.Feedback); fb != "" {
		return fb
	}
	return r.IterationType.Instruction()
}

// IterateResult is the data member of POST /posts/:id/iterate.
type IterateResult struct {
	VersionID       string     `json:"versionId"`
	VersionNumber   int        `json:"versionNumber"`
	GeneratedText   string     `json:"generatedText"`
	IterationPrompt *string    `json:"iterationPrompt,omitempty"`
	IsSelected      bool       `json:"isSelected"`
	Usage           TokenUsage `json:"usage"`
}

// IterateResponse is the body of POST /posts/:id/iterate. RateLimit carries
// the quota left after the iteration was charged.
type IterateResponse struct {
	Message   string           `json:"message,omitempty" example:"Version created"`
	Data      IterateResult    `json:"data"`
	RateLimit *RateLimitStatus `json:"rateLimit,omitempty"`
}

// VersionList is the data member of GET /posts/:id/versions.
type VersionList struct {
	TotalVersions int           `json:"totalVersions"`
	Versions      []PostVersion `json:"versions"`
}

// Envelope wraps endpoint payloads as {message?, data}.
type Envelope[T any] struct {
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}
