package models

type GameID string

const (
	GameColor    GameID = "game1"
	GameMemory   GameID = "game2"
	GameSequence GameID = "game3"
	GameNumber   GameID = "game4"
)

var gameNames = map[GameID]string{
	GameColor:    "Color matching",
	GameMemory:   "Card matching",
	GameSequence: "Sequence memory",
	GameNumber:   "Number comparison",
}

func (g GameID) Valid() bool {
	_, ok := gameNames[g]
	return ok
}

func (g GameID) Title() string {
	return gameNames[g]
}
