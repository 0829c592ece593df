package api

import (
	"context"
	"fmt"

	"cardtrack/internal/model"
)

type CreateBoardRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description"`
}

type BoardPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

func boardPath(boardID int64) string {
	return fmt.Sprintf("/boards/%d/", boardID)
}

func (c *Client) ListBoards(ctx context.Context) ([]model.Board, error) {
	var boards []model.Board
	if err := c.get(ctx, "/boards/", &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, boardID int64) (*model.Board, error) {
	var board model.Board
	if err := c.get(ctx, boardPath(boardID), &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) CreateBoard(ctx context.Context, req CreateBoardRequest) (*model.Board, error) {
	var board model.Board
	if err := c.post(ctx, "/boards/", req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) UpdateBoard(ctx context.Context, boardID int64, patch BoardPatch) (*model.Board, error) {
	var board model.Board
	if err := c.patch(ctx, boardPath(boardID), patch, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) DeleteBoard(ctx context.Context, boardID int64) error {
	return c.delete(ctx, boardPath(boardID))
}
