package api

import (
	"context"
	"fmt"

	"cardtrack/internal/model"
)

type CreateColumnRequest struct {
	Title    string `json:"title" validate:"required,max=100"`
	Color    string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Position int    `json:"position" validate:"min=0"`
}

type ColumnPatch struct {
	Title    *string `json:"title,omitempty" validate:"omitnil,min=1,max=100"`
	Color    *string `json:"color,omitempty" validate:"omitnil,hexcolor"`
	Position *int    `json:"position,omitempty" validate:"omitnil,min=0"`
}

func columnsPath(boardID int64) string {
	return fmt.Sprintf("/boards/%d/columns/", boardID)
}

func columnPath(boardID, columnID int64) string {
	return fmt.Sprintf("/boards/%d/columns/%d/", boardID, columnID)
}

// GetColumns returns the board's columns with their cards nested.
func (c *Client) GetColumns(ctx context.Context, boardID int64) ([]model.Column, error) {
	var cols []model.Column
	if err := c.get(ctx, columnsPath(boardID), &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

func (c *Client) CreateColumn(ctx context.Context, boardID int64, req CreateColumnRequest) (*model.Column, error) {
	var col model.Column
	if err := c.post(ctx, columnsPath(boardID), req, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (c *Client) UpdateColumn(ctx context.Context, boardID, columnID int64, patch ColumnPatch) (*model.Column, error) {
	var col model.Column
	if err := c.patch(ctx, columnPath(boardID, columnID), patch, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

// UpdateColumnPosition persists a single column's rank.
func (c *Client) UpdateColumnPosition(ctx context.Context, boardID, columnID int64, position int) error {
	_, err := c.UpdateColumn(ctx, boardID, columnID, ColumnPatch{Position: &position})
	return err
}

func (c *Client) DeleteColumn(ctx context.Context, boardID, columnID int64) error {
	return c.delete(ctx, columnPath(boardID, columnID))
}
