package serializer

import "github.com/mdouchement/itemtrack/internal/model"

// User serializes the public profile of a user.
// The password hash is never rendered.
func User(m *model.User) map[string]any {
	r := map[string]any{
		"id":    m.ID,
		"name":  m.Name,
		"email": m.Email,
		"role":  m.Role,
	}

	if m.CreatedAt != nil {
		r["createdAt"] = m.CreatedAt.UTC()
	}
	if m.UpdatedAt != nil {
		r["updatedAt"] = m.UpdatedAt.UTC()
	}

	return r
}

// Owner serializes the owner information attached to an item.
func Owner(m *model.User) map[string]any {
	if m == nil {
		return nil
	}

	return map[string]any{
		"id":    m.ID,
		"name":  m.Name,
		"email": m.Email,
	}
}
