package model

// Item statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusCompleted = "completed"
)

// An Item represents a database record.
type Item struct {
	Base `msgpack:",inline" storm:"inline"`

	Title       string `json:"title"       msgpack:"title"`
	Description string `json:"description" msgpack:"description"`
	Status      string `json:"status"      msgpack:"status"  storm:"index"`
	UserID      string `json:"userId"      msgpack:"user_id" storm:"index"`
}

// NewItem returns a new item with default params.
func NewItem() *Item {
	return &Item{
		Status: StatusActive,
	}
}

// OwnedBy returns true if the given user id is the item's owner.
func (m *Item) OwnedBy(userID string) bool {
	return m.UserID != "" && m.UserID == userID
}
