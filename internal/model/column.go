package model

import (
	"sort"
	"time"
)

// DefaultColumnColor is the header color the API assigns when none is given.
const DefaultColumnColor = "#007ACF"

type Column struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`

	Cards []Card `json:"cards"`
}

// Clone returns a copy of the column that shares no card storage with c.
func (c Column) Clone() Column {
	out := c
	if c.Cards != nil {
		out.Cards = make([]Card, len(c.Cards))
		copy(out.Cards, c.Cards)
	}
	return out
}

// CloneColumns deep-copies a column list.
func CloneColumns(cols []Column) []Column {
	if cols == nil {
		return nil
	}
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = c.Clone()
	}
	return out
}

// IndexOfColumn returns the slice index of the column with the given id, or -1.
func IndexOfColumn(cols []Column, id int64) int {
	for i := range cols {
		if cols[i].ID == id {
			return i
		}
	}
	return -1
}

// IndexOfCard returns the slice index of the card with the given id, or -1.
func IndexOfCard(cards []Card, id int64) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}

// SortColumns orders columns by position and the cards of each column by
// position, in place. Equal positions keep id order.
func SortColumns(cols []Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].ID < cols[j].ID
	})
	for i := range cols {
		SortCards(cols[i].Cards)
	}
}

// SortCards orders cards by position, then id.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Position != cards[j].Position {
			return cards[i].Position < cards[j].Position
		}
		return cards[i].ID < cards[j].ID
	})
}
