package api

import (
	"context"
	"fmt"

	"cardtrack/internal/model"
)

type CreateCardRequest struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description"`
	Position    int     `json:"position" validate:"min=0"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitnil,datetime=2006-01-02"`
	Priority    string  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
}

// CardPatch is a partial card update. ColumnID and Position must be sent
// together when a card changes column.
type CardPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,min=1,max=100"`
	Description *string `json:"description,omitempty"`
	ColumnID    *int64  `json:"column,omitempty" validate:"omitnil,gt=0"`
	Position    *int    `json:"position,omitempty" validate:"omitnil,min=0"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitnil,datetime=2006-01-02"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
	Priority    *string `json:"priority,omitempty" validate:"omitnil,oneof=low medium high"`
}

func cardsPath(boardID, columnID int64) string {
	return fmt.Sprintf("/boards/%d/columns/%d/cards/", boardID, columnID)
}

func cardPath(boardID, columnID, cardID int64) string {
	return fmt.Sprintf("/boards/%d/columns/%d/cards/%d/", boardID, columnID, cardID)
}

func (c *Client) CreateCard(ctx context.Context, boardID, columnID int64, req CreateCardRequest) (*model.Card, error) {
	var card model.Card
	if err := c.post(ctx, cardsPath(boardID, columnID), req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard patches a card addressed through the column it currently
// belongs to on the server.
func (c *Client) UpdateCard(ctx context.Context, boardID, columnID, cardID int64, patch CardPatch) (*model.Card, error) {
	var card model.Card
	if err := c.patch(ctx, cardPath(boardID, columnID, cardID), patch, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// MoveCard sets a card's column and position in one request.
func (c *Client) MoveCard(ctx context.Context, boardID, fromColumnID, cardID, toColumnID int64, position int) error {
	_, err := c.UpdateCard(ctx, boardID, fromColumnID, cardID, CardPatch{
		ColumnID: &toColumnID,
		Position: &position,
	})
	return err
}

// UpdateCardPosition persists a card's rank within its current column.
func (c *Client) UpdateCardPosition(ctx context.Context, boardID, columnID, cardID int64, position int) error {
	_, err := c.UpdateCard(ctx, boardID, columnID, cardID, CardPatch{Position: &position})
	return err
}

func (c *Client) DeleteCard(ctx context.Context, boardID, columnID, cardID int64) error {
	return c.delete(ctx, cardPath(boardID, columnID, cardID))
}
