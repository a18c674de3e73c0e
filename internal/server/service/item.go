package service

import (
	"strconv"

	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/mdouchement/itemtrack/internal/validation"
	"github.com/pkg/errors"
)

// Pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	errItemNotFound   = apperror.NotFound("Item not found")
	errMissingUserID  = apperror.BadRequest("User ID is required")
	errNotOwner       = apperror.Forbidden("Unauthorized")
	errAuthentication = apperror.Unauthorized("Authentication required")
)

type (
	// An ItemService handles the items of the caller with ownership checks.
	ItemService interface {
		// List returns a page of items.
		List(params ListParams) (*ItemPage, error)
		// Get returns the item and its owner, if any.
		Get(params Params, id string) (*model.Item, *model.User, error)
		// Create creates a new item owned by the caller.
		Create(params ItemParams) (*model.Item, *model.User, error)
		// Update overwrites the fields of an item owned by the caller.
		Update(id string, params ItemParams) (*model.Item, *model.User, error)
		// Delete deletes an item owned by the caller.
		// A non-empty userID must also match the owner.
		Delete(params Params, id, userID string) error
	}

	// ListParams are used to list items.
	ListParams struct {
		Params
		UserID string
		Search string
		Status string
		Page   int
		Limit  int
	}

	// ItemParams are used to create or update an item.
	ItemParams struct {
		Params
		validation.ItemInput
		UserID string
	}

	// An ItemPage is a page of items with their owners.
	ItemPage struct {
		Items      []*model.Item
		Owners     map[string]*model.User
		Page       int
		Limit      int
		Total      int
		TotalPages int
	}

	itemService struct {
		db database.Client
	}
)

// NewItem returns a new ItemService.
func NewItem(db database.Client) ItemService {
	return &itemService{
		db: db,
	}
}

// ParsePagination parses the page and limit query parameters.
// Invalid or out of range values fall back to their defaults and the limit is capped.
func ParsePagination(page, limit string) (int, int) {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = DefaultPage
	}

	l, err := strconv.Atoi(limit)
	if err != nil || l < 1 {
		l = DefaultLimit
	}
	if l > MaxLimit {
		l = MaxLimit
	}

	return p, l
}

func (s *itemService) List(params ListParams) (*ItemPage, error) {
	caller := params.Caller
	if caller == nil {
		return nil, errAuthentication
	}

	userID := params.UserID
	if !caller.IsAdmin() {
		// Standard users only see their own items.
		if userID == "" {
			userID = caller.ID
		}
		if userID != caller.ID {
			return nil, errNotOwner
		}
	}

	page, limit := params.Page, params.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	filter := database.ItemFilter{
		UserID: userID,
		Search: params.Search,
		Status: params.Status,
	}
	items, total, err := s.db.FindItems(filter, page, limit)
	if err != nil {
		return nil, errors.Wrap(err, "could not list items")
	}

	owners, err := s.owners(items)
	if err != nil {
		return nil, err
	}

	return &ItemPage{
		Items:      items,
		Owners:     owners,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *itemService) Get(params Params, id string) (*model.Item, *model.User, error) {
	if params.Caller == nil {
		return nil, nil, errAuthentication
	}

	item, err := s.find(id)
	if err != nil {
		return nil, nil, err
	}

	if !params.Caller.IsAdmin() && !item.OwnedBy(params.Caller.ID) {
		return nil, nil, errNotOwner
	}

	owners, err := s.owners([]*model.Item{item})
	if err != nil {
		return nil, nil, err
	}

	return item, owners[item.UserID], nil
}

func (s *itemService) Create(params ItemParams) (*model.Item, *model.User, error) {
	if params.Caller == nil {
		return nil, nil, errAuthentication
	}

	input, err := validation.Item(params.ItemInput)
	if err != nil {
		return nil, nil, err
	}

	if params.UserID == "" {
		return nil, nil, errMissingUserID
	}
	if params.UserID != params.Caller.ID {
		return nil, nil, errNotOwner
	}

	item := model.NewItem()
	s.apply(item, input)
	item.UserID = params.Caller.ID

	if err := s.db.Save(item); err != nil {
		return nil, nil, errors.Wrap(err, "could not persist item")
	}

	return item, params.Caller, nil
}

func (s *itemService) Update(id string, params ItemParams) (*model.Item, *model.User, error) {
	if params.Caller == nil {
		return nil, nil, errAuthentication
	}

	input, err := validation.Item(params.ItemInput)
	if err != nil {
		return nil, nil, err
	}

	item, err := s.find(id)
	if err != nil {
		return nil, nil, err
	}

	if err := s.authorize(item, params.Caller, params.UserID); err != nil {
		return nil, nil, err
	}

	s.apply(item, input)

	if err := s.db.Save(item); err != nil {
		return nil, nil, errors.Wrap(err, "could not persist item")
	}

	return item, params.Caller, nil
}

func (s *itemService) Delete(params Params, id, userID string) error {
	if params.Caller == nil {
		return errAuthentication
	}

	item, err := s.find(id)
	if err != nil {
		return err
	}

	if err := s.authorize(item, params.Caller, userID); err != nil {
		return err
	}

	err = s.db.DeleteItem(item.ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			// Deleted concurrently.
			return errItemNotFound
		}
		return errors.Wrap(err, "could not delete item")
	}
	return nil
}

func (s *itemService) find(id string) (*model.Item, error) {
	item, err := s.db.FindItem(id)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, errItemNotFound
		}
		return nil, errors.Wrap(err, "could not get item")
	}
	return item, nil
}

// authorize checks that both the caller and the optional client-supplied owner
// are the owner of the item.
func (s *itemService) authorize(item *model.Item, caller *model.User, userID string) error {
	if userID != "" && !item.OwnedBy(userID) {
		return errNotOwner
	}
	if !item.OwnedBy(caller.ID) {
		return errNotOwner
	}
	return nil
}

// owners fetches the owners of the given items in one lookup.
func (s *itemService) owners(items []*model.Item) (map[string]*model.User, error) {
	owners := map[string]*model.User{}
	if len(items) == 0 {
		return owners, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.UserID)
	}

	users, err := s.db.FindUsersByIDs(ids)
	if err != nil {
		return nil, errors.Wrap(err, "could not get item owners")
	}

	for _, user := range users {
		owners[user.ID] = user
	}
	return owners, nil
}

// updates given item with the validated input.
// works like strong_parameter.
func (s *itemService) apply(item *model.Item, input validation.ItemInput) {
	item.Title = input.Title
	item.Description = input.Description
	item.Status = input.Status
}
