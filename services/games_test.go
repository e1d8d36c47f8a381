package services

import (
	"context"
	"math/rand/v2"
	"testing"

	"ElderCare360/apperr"
	"ElderCare360/games"
	"ElderCare360/models"
	"ElderCare360/services/servicestest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGameFixture(t *testing.T, game models.GameID) (*careFixture, *GameService, *models.Patient) {
	t.Helper()
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	if game != "" {
		require.NoError(t, f.store.AssignGame(context.Background(), p.ID.Hex(), game))
	}
	svc := NewGameService(f.identity, f.store, zap.NewNop(), nil)
	svc.rng = func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }
	t.Cleanup(svc.Attach())
	p.AssignedGame = game
	f.identity.Set(servicestest.Elder(p))
	return f, svc, p
}

func TestGameService_PlayAssignedGame(t *testing.T) {
	_, svc, _ := newGameFixture(t, models.GameColor)

	sess, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.GameColor, sess.Game)
	assert.Equal(t, models.GameColor.Title(), sess.Title)

	state := sess.State.(games.ColorMatchState)
	target := -1
	for i, c := range games.Palette {
		if c.Name == state.Target {
			target = i
		}
	}
	require.GreaterOrEqual(t, target, 0)

	move, err := svc.Play(sess.ID, target)
	require.NoError(t, err)
	assert.True(t, move.Outcome.Correct)
	assert.Equal(t, 1, move.Outcome.Score)

	_, err = svc.Play(sess.ID, len(games.Palette))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, svc.End(sess.ID))
	_, err = svc.Play(sess.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrGameSessionNotFound)
}

func TestGameService_NoGameAssigned(t *testing.T) {
	_, svc, _ := newGameFixture(t, "")

	_, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNoGameAssigned)
}

func TestGameService_OnlyElders(t *testing.T) {
	f, svc, _ := newGameFixture(t, models.GameNumber)
	sess, err := svc.Start(context.Background())
	require.NoError(t, err)

	f.identity.Set(servicestest.Caregiver("cg-1"))
	_, err = svc.Start(context.Background())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Play(sess.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGameService_SessionsDroppedOnIdentityChange(t *testing.T) {
	f, svc, p := newGameFixture(t, models.GameSequence)
	sess, err := svc.Start(context.Background())
	require.NoError(t, err)

	f.identity.Set(servicestest.Elder(p))

	_, err = svc.State(sess.ID)
	assert.ErrorIs(t, err, apperr.ErrGameSessionNotFound)
}
