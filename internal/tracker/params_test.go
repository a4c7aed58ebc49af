package tracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/internal/csfloat"
)

func TestCoerceValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.15, CoerceValue("0.15").Interface())
	assert.Equal(t, int64(5000), CoerceValue("5000").Interface())
	assert.Equal(t, "knife", CoerceValue("knife").Interface())
	assert.Equal(t, "1.2.3", CoerceValue("1.2.3").Interface())
	assert.Equal(t, "nan", CoerceValue("nan").Interface())
	assert.Equal(t, "", CoerceValue("").Interface())
}

func TestBuildParamsDefaults(t *testing.T) {
	t.Parallel()

	q, err := BuildParams(7, 282, []string{"max_float=0.15", "junk", "sort_by=highest_discount"})
	require.NoError(t, err)
	assert.Equal(t, []string{"def_index", "paint_index", "limit", "sort_by", "max_float"}, q.Keys())
	assert.Equal(t, "def_index=7&paint_index=282&limit=20&sort_by=highest_discount&max_float=0.15", q.Encode())
}

func TestBuildParamsInvalidSort(t *testing.T) {
	t.Parallel()

	_, err := BuildParams(7, 282, []string{"sort_by=bogus"})
	var se *InvalidSortError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bogus", se.Value)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "best_deal")
	assert.Contains(t, err.Error(), "created_at")
	assert.Len(t, se.Valid(), 8)
}

func TestTestParams(t *testing.T) {
	t.Parallel()

	q, err := TestParams(7, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, "def_index=7&limit=5&sort_by=best_deal", q.Encode())

	q, err = TestParams(7, 282, 10, "lowest_float")
	require.NoError(t, err)
	v, _ := q.Get("paint_index")
	assert.Equal(t, csfloat.Int(282), v)

	_, err = TestParams(7, 0, 5, "nope")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSortOptions(t *testing.T) {
	t.Parallel()

	opts := SortOptions()
	require.Len(t, opts, 8)
	assert.Equal(t, SortBestDeal, opts[0])
	assert.Equal(t, "Best value deals (default)", SortBestDeal.Description())
	for _, o := range opts {
		back, err := ParseSortOption(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, back)
	}
	_, err := ParseSortOption("BEST_DEAL")
	assert.Error(t, err)
}
