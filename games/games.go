package games

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"ElderCare360/models"
)

var ErrChoice = errors.New("choice out of range")

// Outcome reports what a single move did.
type Outcome struct {
	Correct  bool           `json:"correct"`
	Ignored  bool           `json:"ignored,omitempty"`
	Finished bool           `json:"finished,omitempty"`
	Score    int            `json:"score"`
	Message  string         `json:"message"`
	Revealed map[int]string `json:"revealed,omitempty"`
}

// Game is one play session. Games are not safe for concurrent use.
type Game interface {
	Play(choice int) (Outcome, error)
	State() any
}

type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

var Palette = []Color{
	{Name: "red", Hex: "#D32F2F"},
	{Name: "blue", Hex: "#1976D2"},
	{Name: "green", Hex: "#388E3C"},
	{Name: "yellow", Hex: "#FBC02D"},
}

func New(id models.GameID, rng *rand.Rand) (Game, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	switch id {
	case models.GameColor:
		return NewColorMatch(rng), nil
	case models.GameMemory:
		return NewCardMatch(rng), nil
	case models.GameSequence:
		return NewSequence(rng), nil
	case models.GameNumber:
		return NewNumberPick(rng), nil
	}
	return nil, fmt.Errorf("unknown game %q", id)
}

func checkChoice(choice, n int) error {
	if choice < 0 || choice >= n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrChoice, choice, n)
	}
	return nil
}
