package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

func tick(ts int64, symbol string, close float64) domain.Tick {
	return domain.Tick{
		Timestamp: time.Unix(ts, 0).UTC(),
		Symbol:    symbol,
		Close:     close,
	}
}

func TestNewRejectsEmptyTable(t *testing.T) {
	_, err := New(nil, 0.001)
	require.ErrorIs(t, err, domain.ErrEmptyFeed)
}

func TestNextGroupsTicksByTimestamp(t *testing.T) {
	f, err := New([]domain.Tick{
		tick(100, "token_1/fiat", 1.0),
		tick(100, "token_2/fiat", 2.0),
		tick(200, "token_1/fiat", 1.1),
	}, 0.0003)
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())

	require.True(t, f.Next())
	snap := f.Snapshot()
	assert.Equal(t, time.Unix(100, 0).UTC(), snap.Timestamp)
	assert.Equal(t, 0.0003, snap.Fee)
	assert.Equal(t, []string{"token_1/fiat", "token_2/fiat"}, snap.Pairs)
	assert.Equal(t, 1.0, snap.Ticks["token_1/fiat"].Close)
	assert.Equal(t, 2.0, snap.Ticks["token_2/fiat"].Close)

	require.True(t, f.Next())
	snap = f.Snapshot()
	assert.Equal(t, time.Unix(200, 0).UTC(), snap.Timestamp)
	assert.Equal(t, []string{"token_1/fiat"}, snap.Pairs)

	assert.False(t, f.Next())
	assert.False(t, f.Next(), "exhausted feed stays exhausted")
}

func TestNewSortsOutOfOrderTicks(t *testing.T) {
	f, err := New([]domain.Tick{
		tick(300, "a/fiat", 3),
		tick(100, "a/fiat", 1),
		tick(200, "a/fiat", 2),
	}, 0)
	require.NoError(t, err)

	var closes []float64
	for f.Next() {
		closes = append(closes, f.Snapshot().Ticks["a/fiat"].Close)
	}
	assert.Equal(t, []float64{1, 2, 3}, closes)
}

func TestNextDuplicateSymbolRowsCollapseToLast(t *testing.T) {
	f, err := New([]domain.Tick{
		tick(100, "a/fiat", 1.0),
		tick(100, "a/fiat", 1.5),
	}, 0)
	require.NoError(t, err)

	require.True(t, f.Next())
	snap := f.Snapshot()
	assert.Equal(t, []string{"a/fiat"}, snap.Pairs)
	assert.Equal(t, 1.5, snap.Ticks["a/fiat"].Close)
	assert.False(t, f.Next())
}

func TestNewDoesNotMutateCallerSlice(t *testing.T) {
	ticks := []domain.Tick{
		tick(200, "a/fiat", 2),
		tick(100, "a/fiat", 1),
	}
	_, err := New(ticks, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(200), ticks[0].Timestamp.Unix())
}

func TestReadTicksParsesHeaderAndRows(t *testing.T) {
	csv := strings.Join([]string{
		"timestamp,symbol,open,high,low,close,volume",
		"100,token_1/fiat,1,2,0.5,1.5,10",
		"2024-01-02T00:00:00Z,token_2/fiat,2,3,1.5,2.5,20",
	}, "\n")

	ticks, err := ReadTicks(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, time.Unix(100, 0).UTC(), ticks[0].Timestamp)
	assert.Equal(t, "token_1/fiat", ticks[0].Symbol)
	assert.Equal(t, 1.5, ticks[0].Close)
	assert.Equal(t, 10.0, ticks[0].Volume)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ticks[1].Timestamp)
}

func TestReadTicksHeaderIsCaseInsensitive(t *testing.T) {
	csv := "Timestamp,Symbol,Open,High,Low,Close,Volume\n100,a/fiat,1,1,1,1,1\n"
	ticks, err := ReadTicks(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, ticks, 1)
}

func TestReadTicksMissingColumn(t *testing.T) {
	csv := "timestamp,symbol,open,high,low,volume\n100,a/fiat,1,1,1,1\n"
	_, err := ReadTicks(strings.NewReader(csv))
	require.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "close")
}

func TestReadTicksEmptyTable(t *testing.T) {
	_, err := ReadTicks(strings.NewReader(""))
	require.ErrorIs(t, err, domain.ErrEmptyFeed)

	_, err = ReadTicks(strings.NewReader("timestamp,symbol,open,high,low,close,volume\n"))
	require.ErrorIs(t, err, domain.ErrEmptyFeed)
}

func TestReadTicksBadTimestamp(t *testing.T) {
	csv := "timestamp,symbol,open,high,low,close,volume\nnot-a-time,a/fiat,1,1,1,1,1\n"
	_, err := ReadTicks(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}
