package serializer

import "github.com/mdouchement/itemtrack/internal/model"

// Item serializes the render of an item with its owner, if any.
func Item(m *model.Item, owner *model.User) map[string]any {
	r := map[string]any{
		"id":          m.ID,
		"title":       m.Title,
		"description": m.Description,
		"status":      m.Status,
		"userId":      m.UserID,
		"owner":       nil,
		"createdAt":   m.CreatedAt,
		"updatedAt":   m.UpdatedAt,
	}

	if owner != nil {
		r["owner"] = Owner(owner)
	}

	return r
}

// Items serializes the render of items.
// Owners are looked up by id, missing owners are rendered as null.
func Items(m []*model.Item, owners map[string]*model.User) []map[string]any {
	items := make([]map[string]any, len(m))
	for i, item := range m {
		items[i] = Item(item, owners[item.UserID])
	}
	return items
}
