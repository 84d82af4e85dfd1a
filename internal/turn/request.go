package turn

// Message is a decoded chat-completions message, stripped down to the
// fields the turn pipeline actually reasons about. The full, untouched
// request body (as map[string]interface{}) is what's forwarded upstream.
type Message struct {
	Role    string
	Content string
}

func parseMessages(raw interface{}) []Message {
	list, _ := raw.([]interface{})
	out := make([]Message, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}

// lastUserMessage returns the content of the last message with role
// "user", untrimmed, or "" if there is none.
func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// sessionIDOf derives the stable session id from the request's "user"
// field, falling back to "default" (spec §3).
func sessionIDOf(body map[string]interface{}) string {
	if u, ok := body["user"].(string); ok && u != "" {
		return u
	}
	return "default"
}

// fingerprint derives the dedup cache key from the last three messages'
// (role, content[:200]) tuples (spec §3).
func fingerprint(messages []Message) string {
	start := 0
	if len(messages) > 3 {
		start = len(messages) - 3
	}

	var b []byte
	for _, m := range messages[start:] {
		content := m.Content
		if len(content) > 200 {
			content = content[:200]
		}
		b = append(b, m.Role...)
		b = append(b, '|')
		b = append(b, content...)
		b = append(b, '\n')
	}
	return string(b)
}
