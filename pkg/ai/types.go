package ai

import "context"

// SegmentKind identifies the media type of a prompt segment.
type SegmentKind string

const (
	// SegmentText is a plain text prompt segment.
	SegmentText SegmentKind = "text"
	// SegmentImage is an image segment, carried as raw bytes or a URL.
	SegmentImage SegmentKind = "image"
	// SegmentAudio is an audio segment.
	SegmentAudio SegmentKind = "audio"
	// SegmentVideo is a video segment.
	SegmentVideo SegmentKind = "video"
	// SegmentDocument is a document segment (PDF and similar).
	SegmentDocument SegmentKind = "document"
)

// PromptPart is one ordered segment of a grading prompt. Text segments carry
// Text; media segments carry raw Data or an external URL plus a MIME type.
type PromptPart struct {
	Kind     SegmentKind
	Text     string
	Data     []byte
	URL      string
	MimeType string
}

// TextPart builds a plain text prompt segment.
func TextPart(text string) PromptPart {
	return PromptPart{Kind: SegmentText, Text: text}
}

// Usage captures provider-reported token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// RawCompletion is the unparsed result of one provider call.
type RawCompletion struct {
	Text      string
	ModelName string
	Usage     *Usage
}

// Provider is a uniform interface to an external AI generation service.
// Implementations are stateless request/response transformers; callers pick
// one at construction time and never switch per request.
type Provider interface {
	Complete(ctx context.Context, parts []PromptPart, systemPrompt string) (RawCompletion, error)
}
