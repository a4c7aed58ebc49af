package csfloat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryParamsOrderAndOverwrite(t *testing.T) {
	t.Parallel()

	q := testParams()
	q.Set("def_index", Int(9))
	assert.Equal(t, []string{"def_index", "paint_index", "max_float", "sort_by"}, q.Keys())
	v, ok := q.Get("def_index")
	require.True(t, ok)
	assert.Equal(t, "9", v.String())
	assert.Equal(t, "0.15", q.Values().Get("max_float"))
}

func TestQueryParamsJSON(t *testing.T) {
	t.Parallel()

	q := testParams()
	q.Set("min_float", Float(1))
	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, `{"def_index":7,"paint_index":282,"max_float":0.15,"sort_by":"best_deal","min_float":1.0}`, string(b))

	var back QueryParams
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, q.Keys(), back.Keys())
	mf, _ := back.Get("min_float")
	assert.Equal(t, 1.0, mf.Interface())
	di, _ := back.Get("def_index")
	assert.Equal(t, int64(7), di.Interface())
}

func TestQueryParamsCloneIndependent(t *testing.T) {
	t.Parallel()

	q := testParams()
	c := q.Clone()
	c.Set("limit", Int(5))
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 5, c.Len())
}

func TestQueryParamsJSONZeroValue(t *testing.T) {
	t.Parallel()

	var q QueryParams
	q.Set("def_index", Int(7))
	q.Set("empty", Value{})

	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"def_index":7,"empty":null}`, string(b))

	var back QueryParams
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []string{"def_index", "empty"}, back.Keys())
	v, ok := back.Get("empty")
	require.True(t, ok)
	assert.Nil(t, v.Interface())
	assert.Equal(t, "", v.String())
}

func TestValueUnmarshalRejectsObjects(t *testing.T) {
	t.Parallel()

	var q QueryParams
	assert.Error(t, json.Unmarshal([]byte(`{"a":{"b":1}}`), &q))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &q))
}
