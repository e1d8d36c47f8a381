package games

import "math/rand/v2"

const (
	TargetMax = "max"
	TargetMin = "min"
)

// NumberPick shows four numbers and asks for the largest or the smallest.
type NumberPick struct {
	rng     *rand.Rand
	numbers [4]int
	target  string
	score   int
}

type NumberPickState struct {
	Numbers []int  `json:"numbers"`
	Target  string `json:"target"`
	Score   int    `json:"score"`
}

func NewNumberPick(rng *rand.Rand) *NumberPick {
	g := &NumberPick{rng: rng}
	g.round()
	return g
}

func (g *NumberPick) round() {
	for i := range g.numbers {
		g.numbers[i] = g.rng.IntN(100)
	}
	g.target = TargetMin
	if g.rng.IntN(2) == 0 {
		g.target = TargetMax
	}
}

func (g *NumberPick) extreme() int {
	best := g.numbers[0]
	for _, n := range g.numbers[1:] {
		if (g.target == TargetMax && n > best) || (g.target == TargetMin && n < best) {
			best = n
		}
	}
	return best
}

// Play takes the index of the picked number. Every pick starts a new round.
func (g *NumberPick) Play(choice int) (Outcome, error) {
	if err := checkChoice(choice, len(g.numbers)); err != nil {
		return Outcome{}, err
	}
	correct := g.numbers[choice] == g.extreme()
	out := Outcome{Correct: correct, Message: "That was not it."}
	if correct {
		g.score++
		out.Message = "Well done!"
	}
	out.Score = g.score
	g.round()
	return out, nil
}

func (g *NumberPick) State() any {
	return NumberPickState{Numbers: append([]int(nil), g.numbers[:]...), Target: g.target, Score: g.score}
}
