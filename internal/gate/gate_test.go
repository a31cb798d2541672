package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbrasil/stockledger/internal/ledger"
)

type staticPIN string

func (p staticPIN) CheckPassword(candidate string) bool {
	return string(p) == candidate
}

func countingAction(name string, calls *int) Action {
	return Action{Name: name, Run: func(context.Context) error {
		*calls++
		return nil
	}}
}

func TestGate_WrongThenRightPIN(t *testing.T) {
	ctx := context.Background()
	g := New(staticPIN("2828"))
	calls := 0

	assert.Equal(t, StateIdle, g.State())
	g.Request(countingAction("reset", &calls))
	assert.Equal(t, StateAwaitingPassword, g.State())

	err := g.Submit(ctx, "1111")
	assert.ErrorIs(t, err, ledger.ErrAuthFailed)
	assert.Equal(t, StateAwaitingPassword, g.State())
	assert.Equal(t, 1, g.Attempts())
	assert.Zero(t, calls)

	name, ok := g.Pending()
	assert.True(t, ok)
	assert.Equal(t, "reset", name)

	require.NoError(t, g.Submit(ctx, "2828"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateIdle, g.State())
	assert.Zero(t, g.Attempts())

	_, ok = g.Pending()
	assert.False(t, ok)
}

func TestGate_ActionRunsOnce(t *testing.T) {
	ctx := context.Background()
	g := New(staticPIN("2828"))
	calls := 0

	g.Request(countingAction("cancel_sale", &calls))
	require.NoError(t, g.Submit(ctx, "2828"))

	assert.ErrorIs(t, g.Submit(ctx, "2828"), ErrNoPendingAction)
	assert.Equal(t, 1, calls)
}

func TestGate_CancelDiscardsAction(t *testing.T) {
	ctx := context.Background()
	g := New(staticPIN("2828"))
	calls := 0

	g.Request(countingAction("delete_product", &calls))
	g.Cancel()

	assert.Equal(t, StateIdle, g.State())
	assert.ErrorIs(t, g.Submit(ctx, "2828"), ErrNoPendingAction)
	assert.Zero(t, calls)
}

func TestGate_NewRequestReplacesPending(t *testing.T) {
	ctx := context.Background()
	g := New(staticPIN("2828"))
	first, second := 0, 0

	g.Request(countingAction("first", &first))
	_ = g.Submit(ctx, "bad")
	g.Request(countingAction("second", &second))
	assert.Zero(t, g.Attempts())

	require.NoError(t, g.Submit(ctx, "2828"))
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestGate_ActionErrorIsReturned(t *testing.T) {
	g := New(staticPIN("2828"))
	boom := errors.New("boom")

	g.Request(Action{Name: "withdraw", Run: func(context.Context) error { return boom }})
	err := g.Submit(context.Background(), "2828")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateIdle, g.State())
}

func TestGate_StateDuringAction(t *testing.T) {
	g := New(staticPIN("2828"))
	var seen State

	g.Request(Action{Name: "reset", Run: func(context.Context) error {
		seen = g.State()
		return nil
	}})
	require.NoError(t, g.Submit(context.Background(), "2828"))

	assert.Equal(t, StateAuthorized, seen)
	assert.Equal(t, "authorized", seen.String())
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	calls := 0

	err := Guard(ctx, staticPIN("2828"), "0000", countingAction("reset", &calls))
	assert.ErrorIs(t, err, ledger.ErrAuthFailed)
	assert.Zero(t, calls)

	require.NoError(t, Guard(ctx, staticPIN("2828"), "2828", countingAction("reset", &calls)))
	assert.Equal(t, 1, calls)
}

func TestGuard_WithLedgerPIN(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(nil)
	calls := 0

	require.NoError(t, Guard(ctx, l, ledger.DefaultPassword, countingAction("reset", &calls)))
	assert.Equal(t, 1, calls)
}
