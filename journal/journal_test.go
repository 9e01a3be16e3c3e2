package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
)

type testJournal struct {
	positions []PositionRecord
	equity    []EquitySnapshot
	err       error
	closed    bool
}

func (j *testJournal) RecordPosition(r PositionRecord) error {
	j.positions = append(j.positions, r)
	return j.err
}

func (j *testJournal) RecordEquity(e EquitySnapshot) error {
	j.equity = append(j.equity, e)
	return j.err
}

func (j *testJournal) Close() error {
	j.closed = true
	return j.err
}

func TestFromPositionRoundTrip(t *testing.T) {
	t.Parallel()

	opened := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	closed := opened.Add(time.Hour)
	exit := 1.0850

	p := ledger.Position{
		ID:           "P1",
		Instrument:   "EURUSD",
		Direction:    ledger.Long,
		Quantity:     100000,
		EntryPrice:   1.0800,
		CurrentPrice: exit,
		Status:       ledger.StatusClosed,
		PnL:          500,
		PnLPercent:   0.463,
		OpenedAt:     opened,
		ExitPrice:    &exit,
		ClosedAt:     &closed,
		Strategy:     "breakout",
		Tags:         []string{"x"},
	}

	rec := FromPosition(p, "manual")
	assert.Equal(t, "long", rec.Direction)
	assert.Equal(t, exit, rec.ExitPrice)
	assert.True(t, rec.CloseTime.Equal(closed))
	assert.Equal(t, "manual", rec.Reason)

	back := rec.Position()
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, p.Direction, back.Direction)
	assert.Equal(t, p.PnL, back.PnL)
	assert.False(t, back.IsOpen())
	require.NotNil(t, back.ExitPrice)
	assert.Equal(t, exit, *back.ExitPrice)
	require.NotNil(t, back.ClosedAt)
	assert.True(t, back.ClosedAt.Equal(closed))
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a, b := &testJournal{}, &testJournal{err: boom}
	m := Multi{a, b}

	err := m.RecordPosition(PositionRecord{PositionID: "P1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.positions, 1)
	assert.Len(t, b.positions, 1)

	assert.ErrorIs(t, m.RecordEquity(EquitySnapshot{}), boom)
	assert.Len(t, a.equity, 1)

	assert.ErrorIs(t, m.Close(), boom)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordPosition(PositionRecord{}))
	assert.NoError(t, j.RecordEquity(EquitySnapshot{}))
	assert.NoError(t, j.Close())
}
