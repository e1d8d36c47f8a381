package games

import "math/rand/v2"

var Symbols = []string{"🍎", "🎈", "🐶", "🌼"}

// CardMatch is a face-down pairs game. Two flips make one attempt.
type CardMatch struct {
	cards    []string
	matched  []bool
	pending  int
	attempts int
	pairs    int
}

type CardMatchState struct {
	// Cards holds the symbol of matched and pending cards, "" for face-down ones.
	Cards    []string `json:"cards"`
	Attempts int      `json:"attempts"`
	Finished bool     `json:"finished"`
}

func NewCardMatch(rng *rand.Rand) *CardMatch {
	cards := append(append([]string{}, Symbols...), Symbols...)
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return &CardMatch{cards: cards, matched: make([]bool, len(cards)), pending: -1}
}

func (g *CardMatch) finished() bool {
	return g.pairs*2 == len(g.cards)
}

/*
* Flips on matched cards, the pending card or a finished board are ignored
* The first flip of an attempt is kept pending
* The second flip counts an attempt and keeps the pair if the symbols match
 */
func (g *CardMatch) Play(choice int) (Outcome, error) {
	if err := checkChoice(choice, len(g.cards)); err != nil {
		return Outcome{}, err
	}
	if g.finished() || g.matched[choice] || choice == g.pending {
		return Outcome{Ignored: true, Finished: g.finished(), Score: g.pairs}, nil
	}
	if g.pending < 0 {
		g.pending = choice
		return Outcome{Correct: true, Score: g.pairs, Message: "Pick another card.",
			Revealed: map[int]string{choice: g.cards[choice]}}, nil
	}

	first := g.pending
	g.pending = -1
	g.attempts++
	revealed := map[int]string{first: g.cards[first], choice: g.cards[choice]}
	if g.cards[first] != g.cards[choice] {
		return Outcome{Score: g.pairs, Message: "Not a pair.", Revealed: revealed}, nil
	}
	g.matched[first], g.matched[choice] = true, true
	g.pairs++
	out := Outcome{Correct: true, Score: g.pairs, Message: "A pair!", Revealed: revealed}
	if g.finished() {
		out.Finished = true
		out.Message = "All pairs found!"
	}
	return out, nil
}

func (g *CardMatch) State() any {
	cards := make([]string, len(g.cards))
	for i, c := range g.cards {
		if g.matched[i] || i == g.pending {
			cards[i] = c
		}
	}
	return CardMatchState{Cards: cards, Attempts: g.attempts, Finished: g.finished()}
}
