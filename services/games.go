package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"ElderCare360/apperr"
	"ElderCare360/games"
	"ElderCare360/metrics"
	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GameSession struct {
	ID    string        `json:"id"`
	Game  models.GameID `json:"game"`
	Title string        `json:"title"`
	State any           `json:"state"`
}

type GameMove struct {
	Outcome games.Outcome `json:"outcome"`
	State   any           `json:"state"`
}

type playSession struct {
	mu     sync.Mutex
	owner  string
	gameID models.GameID
	game   games.Game
}

// GameService keeps the play sessions of the signed-in elder in memory.
type GameService struct {
	identity IdentitySource
	care     *CareStore
	log      *zap.Logger
	metrics  *metrics.Metrics
	rng      func() *rand.Rand

	mu       sync.Mutex
	sessions map[string]*playSession
}

func NewGameService(identity IdentitySource, care *CareStore, log *zap.Logger, m *metrics.Metrics) *GameService {
	return &GameService{
		identity: identity,
		care:     care,
		log:      log,
		metrics:  m,
		rng:      func() *rand.Rand { return nil },
		sessions: make(map[string]*playSession),
	}
}

// Attach drops every session when the identity changes.
func (g *GameService) Attach() (detach func()) {
	return g.identity.Subscribe(func(models.Identity) {
		g.mu.Lock()
		g.sessions = make(map[string]*playSession)
		g.mu.Unlock()
	})
}

func (g *GameService) elder() (*models.ElderSession, error) {
	id := g.identity.Current()
	if err := requireRole(id, role.ResourceGame, role.ActionPlay); err != nil {
		return nil, err
	}
	return id.Elder, nil
}

/*
* Only an elder can play
* Launch the game assigned to the elder's patient record
 */
func (g *GameService) Start(ctx context.Context) (sess *GameSession, err error) {
	defer func() { g.metrics.Observe("startGame", err) }()

	elder, err := g.elder()
	if err != nil {
		return nil, err
	}
	p, err := g.care.ElderPatient(ctx)
	if err != nil {
		return nil, err
	}
	if p.AssignedGame == "" {
		return nil, apperr.ErrNoGameAssigned
	}
	game, err := games.New(p.AssignedGame, g.rng())
	if err != nil {
		g.log.Error("Error from games.New", zap.String("game", string(p.AssignedGame)), zap.Error(err))
		return nil, apperr.ErrNoGameAssigned.WithCause(err)
	}

	id := uuid.NewString()
	g.mu.Lock()
	g.sessions[id] = &playSession{owner: elder.ID, gameID: p.AssignedGame, game: game}
	g.mu.Unlock()

	return &GameSession{ID: id, Game: p.AssignedGame, Title: p.AssignedGame.Title(), State: game.State()}, nil
}

func (g *GameService) session(id string) (*playSession, error) {
	elder, err := g.elder()
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	ps, ok := g.sessions[id]
	g.mu.Unlock()
	if !ok || ps.owner != elder.ID {
		return nil, apperr.ErrGameSessionNotFound
	}
	return ps, nil
}

func (g *GameService) Play(sessionID string, choice int) (*GameMove, error) {
	ps, err := g.session(sessionID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out, err := ps.game.Play(choice)
	if err != nil {
		if errors.Is(err, games.ErrChoice) {
			return nil, apperr.Invalid("%v", err)
		}
		return nil, err
	}
	return &GameMove{Outcome: out, State: ps.game.State()}, nil
}

func (g *GameService) State(sessionID string) (*GameSession, error) {
	ps, err := g.session(sessionID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return &GameSession{ID: sessionID, Game: ps.gameID, Title: ps.gameID.Title(), State: ps.game.State()}, nil
}

func (g *GameService) End(sessionID string) error {
	if _, err := g.session(sessionID); err != nil {
		return err
	}
	g.mu.Lock()
	delete(g.sessions, sessionID)
	g.mu.Unlock()
	return nil
}
