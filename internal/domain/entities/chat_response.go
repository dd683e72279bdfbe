package entities

// ChatResponse is the canonical result of one completion invocation: either a
// text reply (Content set, ToolCall nil) or a single tool-call request. The
// streaming and single-shot paths both terminate in this shape.
type ChatResponse struct {
	Content      string    `json:"content,omitempty"`
	ToolCall     *ToolCall `json:"toolCall,omitempty"`
	FinishReason string    `json:"finishReason"`
}

// IsToolCall reports whether the turn must continue through the payment and
// dispatch sequence before the model can conclude it.
func (cr *ChatResponse) IsToolCall() bool {
	return cr.ToolCall != nil
}

// StreamChunk is one fragment of an incremental completion. Content chunks
// arrive in order; the terminal chunk carries Done plus the assembled
// Response, which must be identical to what the single-shot path would have
// produced for the same model output.
type StreamChunk struct {
	Content  string        `json:"content,omitempty"`
	Done     bool          `json:"done"`
	Response *ChatResponse `json:"response,omitempty"`
	Err      error         `json:"-"`
}
