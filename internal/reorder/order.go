// Package reorder implements drag-and-drop ordering for columns and cards:
// pure functions computing the new order and positions, and a reconciler
// that applies them optimistically, persists them and resynchronizes the
// board from the server.
package reorder

import (
	"errors"

	"cardtrack/internal/model"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrCardNotFound   = errors.New("card not found")

	// ErrNoRelocationTarget is returned when a column that still has cards
	// is the only column of its board.
	ErrNoRelocationTarget = errors.New("no adjacent column to move cards into")
)

// Drop describes where a dragged card was released in its target column.
type Drop struct {
	atEnd  bool
	cardID int64
}

// DropAtEnd releases a card on the empty tail of a column.
func DropAtEnd() Drop { return Drop{atEnd: true} }

// DropOnCard releases a card onto another card; it is inserted before it.
func DropOnCard(cardID int64) Drop { return Drop{cardID: cardID} }

func (d Drop) AtEnd() bool { return d.atEnd }

func (d Drop) CardID() int64 { return d.cardID }

// CardMove is the outcome of MoveCard.
type CardMove struct {
	Columns []model.Column
	Card    model.Card

	// Source holds the cards remaining in the source column, renumbered.
	// For a move within one column it holds every other card of it.
	Source []model.Card
	// Target holds the other cards of the target column, renumbered.
	// Empty for a move within one column.
	Target []model.Card

	SameColumn bool
}

// DeletePlan is the outcome of PlanColumnDelete.
type DeletePlan struct {
	Column model.Column

	// TargetID is the column receiving the deleted column's cards, or 0
	// when the column was empty.
	TargetID  int64
	Relocated []model.Card

	// Columns is the board after the delete, positions renumbered.
	Columns []model.Column
	// Renumbered lists the remaining columns whose position changed.
	Renumbered []model.Column
}

// MoveColumn removes the source column and reinserts it at the index the
// target column occupied, then renumbers every column. It reports false
// when either column is missing or the order would not change.
func MoveColumn(cols []model.Column, sourceID, targetID int64) ([]model.Column, bool) {
	from := model.IndexOfColumn(cols, sourceID)
	to := model.IndexOfColumn(cols, targetID)
	if from < 0 || to < 0 || from == to {
		return nil, false
	}

	out := model.CloneColumns(cols)
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = insertAt(out, to, moved)
	RenumberColumns(out)
	return out, true
}

// MoveCard moves a card from one column to a position in another (or the
// same) column. Dropping on a card inserts before that card as it was
// placed before the drag started, so a card dragged downwards lands
// directly above its drop target. It reports false when a referenced
// column or card is missing or nothing would change.
func MoveCard(cols []model.Column, sourceColumnID, cardID, targetColumnID int64, drop Drop) (CardMove, bool) {
	si := model.IndexOfColumn(cols, sourceColumnID)
	ti := model.IndexOfColumn(cols, targetColumnID)
	if si < 0 || ti < 0 {
		return CardMove{}, false
	}
	from := model.IndexOfCard(cols[si].Cards, cardID)
	if from < 0 {
		return CardMove{}, false
	}

	insert := len(cols[ti].Cards)
	if !drop.atEnd {
		if drop.cardID == cardID {
			return CardMove{}, false
		}
		insert = model.IndexOfCard(cols[ti].Cards, drop.cardID)
		if insert < 0 {
			return CardMove{}, false
		}
	}

	out := model.CloneColumns(cols)
	card := out[si].Cards[from]
	out[si].Cards = append(out[si].Cards[:from], out[si].Cards[from+1:]...)

	same := si == ti
	if same {
		if from < insert {
			insert--
		}
		if insert == from {
			return CardMove{}, false
		}
	}

	card.ColumnID = targetColumnID
	out[ti].Cards = insertAt(out[ti].Cards, insert, card)
	RenumberCards(out[si].Cards)
	if !same {
		RenumberCards(out[ti].Cards)
	}

	move := CardMove{
		Columns:    out,
		Card:       out[ti].Cards[insert],
		SameColumn: same,
	}
	move.Source = without(out[si].Cards, cardID)
	if !same {
		move.Target = without(out[ti].Cards, cardID)
	}
	return move, true
}

// PlanColumnDelete computes the board after deleting a column. Its cards
// are appended, in order, to the preceding column, or to the following
// one when there is no predecessor.
func PlanColumnDelete(cols []model.Column, columnID int64) (DeletePlan, error) {
	idx := model.IndexOfColumn(cols, columnID)
	if idx < 0 {
		return DeletePlan{}, ErrColumnNotFound
	}

	out := model.CloneColumns(cols)
	plan := DeletePlan{Column: out[idx].Clone()}

	if len(out[idx].Cards) > 0 {
		target := idx - 1
		if target < 0 {
			target = idx + 1
		}
		if target >= len(out) {
			return DeletePlan{}, ErrNoRelocationTarget
		}
		base := len(out[target].Cards)
		for i, card := range out[idx].Cards {
			card.ColumnID = out[target].ID
			card.Position = base + i
			plan.Relocated = append(plan.Relocated, card)
			out[target].Cards = append(out[target].Cards, card)
		}
		plan.TargetID = out[target].ID
	}

	out = append(out[:idx], out[idx+1:]...)
	before := make(map[int64]int, len(out))
	for _, c := range out {
		before[c.ID] = c.Position
	}
	RenumberColumns(out)
	for _, c := range out {
		if before[c.ID] != c.Position {
			plan.Renumbered = append(plan.Renumbered, c)
		}
	}
	plan.Columns = out
	return plan, nil
}

// RemoveCard deletes a card from its column and renumbers the siblings.
// It returns the new columns and the siblings whose position changed.
func RemoveCard(cols []model.Column, columnID, cardID int64) ([]model.Column, []model.Card, error) {
	ci := model.IndexOfColumn(cols, columnID)
	if ci < 0 {
		return nil, nil, ErrColumnNotFound
	}
	idx := model.IndexOfCard(cols[ci].Cards, cardID)
	if idx < 0 {
		return nil, nil, ErrCardNotFound
	}

	out := model.CloneColumns(cols)
	cards := append(out[ci].Cards[:idx], out[ci].Cards[idx+1:]...)
	var changed []model.Card
	for i := range cards {
		if cards[i].Position != i {
			cards[i].Position = i
			changed = append(changed, cards[i])
		}
	}
	out[ci].Cards = cards
	return out, changed, nil
}

// RenumberColumns sets each column's position to its index.
func RenumberColumns(cols []model.Column) {
	for i := range cols {
		cols[i].Position = i
	}
}

// RenumberCards sets each card's position to its index.
func RenumberCards(cards []model.Card) {
	for i := range cards {
		cards[i].Position = i
	}
}

// Dense reports whether positions is a permutation of 0..len-1.
func Dense(positions []int) bool {
	seen := make([]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(positions) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

func ColumnPositions(cols []model.Column) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.Position
	}
	return out
}

func CardPositions(cards []model.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.Position
	}
	return out
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func without(cards []model.Card, id int64) []model.Card {
	out := make([]model.Card, 0, len(cards))
	for _, c := range cards {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
