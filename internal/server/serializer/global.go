package serializer

// Success wraps the given payload into the API response envelope.
func Success(payload map[string]any) map[string]any {
	r := map[string]any{
		"success": true,
	}
	for k, v := range payload {
		r[k] = v
	}
	return r
}

// Message returns a successful acknowledgment with the given message.
func Message(message string) map[string]any {
	return Success(map[string]any{
		"message": message,
	})
}
