package serializer

import "github.com/mdouchement/itemtrack/internal/model"

// Session serializes the render of a session.
func Session(m *model.Session) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"userAgent": m.UserAgent,
		"createdAt": m.CreatedAt,
		"updatedAt": m.UpdatedAt,
		"expireAt":  m.ExpireAt.UTC(),
		"current":   m.Current,
	}
}

// Sessions serializes the render of sessions.
func Sessions(m []*model.Session) []map[string]any {
	sessions := make([]map[string]any, len(m))
	for i, s := range m {
		sessions[i] = Session(s)
	}
	return sessions
}
