package games

import "math/rand/v2"

// Sequence shows a growing color sequence that must be repeated.
type Sequence struct {
	rng      *rand.Rand
	sequence []int
	input    int
}

type SequenceState struct {
	Colors   []Color `json:"colors"`
	Sequence []int   `json:"sequence"`
	Level    int     `json:"level"`
	Progress int     `json:"progress"`
}

func NewSequence(rng *rand.Rand) *Sequence {
	g := &Sequence{rng: rng}
	g.restart()
	return g
}

func (g *Sequence) restart() {
	g.sequence = []int{g.rng.IntN(len(Palette))}
	g.input = 0
}

func (g *Sequence) Play(choice int) (Outcome, error) {
	if err := checkChoice(choice, len(Palette)); err != nil {
		return Outcome{}, err
	}
	if g.sequence[g.input] != choice {
		g.restart()
		return Outcome{Score: len(g.sequence), Message: "Wrong color, starting over."}, nil
	}
	g.input++
	if g.input < len(g.sequence) {
		return Outcome{Correct: true, Score: len(g.sequence), Message: "Keep going."}, nil
	}
	g.sequence = append(g.sequence, g.rng.IntN(len(Palette)))
	g.input = 0
	return Outcome{Correct: true, Score: len(g.sequence), Message: "Correct! Here is a longer sequence."}, nil
}

func (g *Sequence) State() any {
	return SequenceState{
		Colors:   Palette,
		Sequence: append([]int(nil), g.sequence...),
		Level:    len(g.sequence),
		Progress: g.input,
	}
}
