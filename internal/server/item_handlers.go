package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/server/serializer"
	"github.com/mdouchement/itemtrack/internal/server/service"
	"github.com/mdouchement/itemtrack/internal/validation"
)

type (
	// item contains all item handlers.
	item struct {
		items service.ItemService
	}

	itemPayload struct {
		validation.ItemInput
		UserID string `json:"userId"`
	}
)

///// List
////
//

// List returns a page of items.
// Standard users only list their own items, administrators may list all of them.
func (h *item) List(c echo.Context) error {
	page, limit := service.ParsePagination(c.QueryParam("page"), c.QueryParam("limit"))

	result, err := h.items.List(service.ListParams{
		Params: params(c),
		UserID: c.QueryParam("userId"),
		Search: c.QueryParam("search"),
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success(map[string]any{
		"items": serializer.Items(result.Items, result.Owners),
		"pagination": map[string]any{
			"page":       result.Page,
			"limit":      result.Limit,
			"total":      result.Total,
			"totalPages": result.TotalPages,
		},
	}))
}

///// Show
////
//

// Show returns the requested item with its owner.
func (h *item) Show(c echo.Context) error {
	item, owner, err := h.items.Get(params(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success(map[string]any{
		"item": serializer.Item(item, owner),
	}))
}

///// Create
////
//

// Create creates a new item owned by the current user.
func (h *item) Create(c echo.Context) error {
	// Filter params
	var payload itemPayload
	if err := c.Bind(&payload); err != nil {
		return err
	}

	item, owner, err := h.items.Create(service.ItemParams{
		Params:    params(c),
		ItemInput: payload.ItemInput,
		UserID:    payload.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, serializer.Success(map[string]any{
		"message": "Item created successfully",
		"item":    serializer.Item(item, owner),
	}))
}

///// Update
////
//

// Update overwrites the fields of an item owned by the current user.
func (h *item) Update(c echo.Context) error {
	// Filter params
	var payload itemPayload
	if err := c.Bind(&payload); err != nil {
		return err
	}

	item, owner, err := h.items.Update(c.Param("id"), service.ItemParams{
		Params:    params(c),
		ItemInput: payload.ItemInput,
		UserID:    payload.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success(map[string]any{
		"message": "Item updated successfully",
		"item":    serializer.Item(item, owner),
	}))
}

///// Delete
////
//

// Delete removes an item owned by the current user.
func (h *item) Delete(c echo.Context) error {
	err := h.items.Delete(params(c), c.Param("id"), c.QueryParam("userId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Message("Item deleted successfully"))
}
