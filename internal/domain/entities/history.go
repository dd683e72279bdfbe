package entities

// SanitizeForModel returns a copy of history with every assistant tool-call
// message removed unless a matching tool result appears later in the
// sequence. A provider will reject or stall on a history that still contains
// an unanswered tool call, so this runs before every completion request, not
// just on error paths. Pure and idempotent.
//
// Matching prefers the call id; when the stored call has no id the tool name
// is used as a fallback, since some providers omit ids on the response leg.
func SanitizeForModel(history []Message) []Message {
	sanitized := make([]Message, 0, len(history))
	for i := range history {
		msg := history[i]
		if msg.IsPendingToolCall() && !hasAnswerAfter(history, i) {
			continue
		}
		sanitized = append(sanitized, msg)
	}
	return sanitized
}

func hasAnswerAfter(history []Message, callIdx int) bool {
	call := history[callIdx].ToolCall
	for j := callIdx + 1; j < len(history); j++ {
		m := history[j]
		if m.Role != RoleTool || m.ToolCall == nil {
			continue
		}
		if call.ID != "" && m.ToolCall.ID == call.ID {
			return true
		}
		if call.ID == "" && m.ToolCall.Name == call.Name {
			return true
		}
	}
	return false
}

// ProviderCallID resolves the provider-facing call id for the message at idx
// in history. Assistant tool-call messages use the stored id or a synthesized
// one derived from the message id. Tool messages without a stored id recover
// the id by scanning backward for the nearest prior assistant tool-call with
// the same tool name; if none exists a fresh id is synthesized from the tool
// message itself. Deterministic for a given history.
func ProviderCallID(history []Message, idx int) string {
	msg := history[idx]
	if msg.ToolCall == nil {
		return ""
	}
	if msg.ToolCall.ID != "" {
		return msg.ToolCall.ID
	}
	if msg.Role == RoleTool {
		for i := idx - 1; i >= 0; i-- {
			prev := history[i]
			if prev.IsPendingToolCall() && prev.ToolCall.Name == msg.ToolCall.Name {
				return "call_" + prev.ID
			}
		}
	}
	return "call_" + msg.ID
}
