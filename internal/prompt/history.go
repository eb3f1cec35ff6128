package prompt

import "github.com/MrWong99/lingomirror/pkg/provider/llm"

// FoldInstruction prepares a conversation history for a generation request
// and folds the new instruction into it.
//
// Generation backends enforce strict user/assistant alternation, so the
// history is first trimmed to the last window entries and runs of same-role
// messages are collapsed to their most recent entry. The instruction then
// lands according to what the trimmed history ends on:
//
//   - empty history, or ending on an assistant turn: the instruction is
//     appended as a new user message;
//   - ending on a user turn: the instruction is appended to that message's
//     content, because two consecutive user messages would be rejected.
//
// The input slice is never mutated.
func FoldInstruction(history []llm.Message, instruction string, window int) []llm.Message {
	trimmed := alternating(tail(history, window))

	if n := len(trimmed); n > 0 && trimmed[n-1].Role == "user" {
		merged := trimmed[n-1]
		merged.Content = merged.Content + "\n\n" + instruction
		trimmed[n-1] = merged
		return trimmed
	}

	return append(trimmed, llm.Message{Role: "user", Content: instruction})
}

// tail returns the last n entries of msgs (all of them if n <= 0 or msgs is
// shorter).
func tail(msgs []llm.Message, n int) []llm.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// alternating collapses runs of consecutive same-role messages, keeping the
// most recent message of each run. The result is a fresh slice.
func alternating(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1] = m
			continue
		}
		out = append(out, m)
	}
	return out
}
