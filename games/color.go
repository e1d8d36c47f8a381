package games

import "math/rand/v2"

// ColorMatch asks for one target color at a time.
type ColorMatch struct {
	rng    *rand.Rand
	target int
	score  int
}

type ColorMatchState struct {
	Colors []Color `json:"colors"`
	Target string  `json:"target"`
	Score  int     `json:"score"`
}

func NewColorMatch(rng *rand.Rand) *ColorMatch {
	g := &ColorMatch{rng: rng}
	g.target = rng.IntN(len(Palette))
	return g
}

func (g *ColorMatch) Play(choice int) (Outcome, error) {
	if err := checkChoice(choice, len(Palette)); err != nil {
		return Outcome{}, err
	}
	if choice != g.target {
		return Outcome{Score: g.score, Message: "That is not the right color."}, nil
	}
	g.score++
	g.target = g.rng.IntN(len(Palette))
	return Outcome{Correct: true, Score: g.score, Message: "Well done!"}, nil
}

func (g *ColorMatch) State() any {
	return ColorMatchState{Colors: Palette, Target: Palette[g.target].Name, Score: g.score}
}
