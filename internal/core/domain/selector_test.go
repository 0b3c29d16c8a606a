package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Validate(t *testing.T) {
	v := "a"
	tests := []struct {
		name    string
		sel     Selector
		wantErr bool
	}{
		{"eq", Eq("a"), false},
		{"neq", NotEq("a"), false},
		{"in", In("a", "b"), false},
		{"empty in", In(), false},
		{"nin", NotIn("a"), false},
		{"zero", Selector{}, true},
		{"eq and in", Selector{Eq: &v, In: []string{"b"}}, true},
		{"neq and nin", Selector{NotEq: &v, NotIn: []string{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate(FieldOwner)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				assert.Contains(t, err.Error(), "owner")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelector_Op(t *testing.T) {
	v := "a"
	assert.Equal(t, OpEq, Eq("a").Op())
	assert.Equal(t, OpNotEq, NotEq("a").Op())
	assert.Equal(t, OpIn, In("a").Op())
	assert.Equal(t, OpNotIn, NotIn("a").Op())
	assert.Equal(t, OpNone, Selector{}.Op())
	assert.Equal(t, OpNone, Selector{Eq: &v, NotEq: &v}.Op())
}

func TestSelector_Matches(t *testing.T) {
	assert.True(t, Eq("a").Matches("a"))
	assert.False(t, Eq("a").Matches("b"))
	assert.True(t, NotEq("a").Matches("b"))
	assert.False(t, NotEq("a").Matches("a"))
	assert.True(t, In("a", "b").Matches("b"))
	assert.False(t, In().Matches("a"))
	assert.True(t, NotIn().Matches("a"))
	assert.False(t, NotIn("a").Matches("a"))
	assert.False(t, Selector{}.Matches("a"))
}

func TestSelector_MatchesAny(t *testing.T) {
	owners := []string{"tz1alice", "tz1bob"}

	assert.True(t, Eq("tz1bob").MatchesAny(owners))
	assert.False(t, Eq("tz1carol").MatchesAny(owners))
	assert.True(t, NotEq("tz1carol").MatchesAny(owners))
	assert.False(t, NotIn("tz1alice").MatchesAny(owners))
	assert.False(t, Eq("tz1alice").MatchesAny(nil))
	assert.True(t, NotEq("tz1alice").MatchesAny(nil))
}

func TestSelector_WithValues(t *testing.T) {
	assert.Equal(t, Eq("x"), Eq("a").WithValues([]string{"x"}))
	assert.Equal(t, In("x", "y"), Eq("a").WithValues([]string{"x", "y"}))
	assert.Equal(t, NotEq("x"), NotEq("a").WithValues([]string{"x"}))
	assert.Equal(t, NotIn("x", "y"), NotEq("a").WithValues([]string{"x", "y"}))
	assert.Equal(t, In("x"), In("a", "b").WithValues([]string{"x"}))
	assert.Equal(t, NotIn("x"), NotIn("a", "b").WithValues([]string{"x"}))
}

func TestSelector_CloneIsIndependent(t *testing.T) {
	orig := In("a", "b")
	c := orig.Clone()
	c.In[0] = "z"

	assert.Equal(t, "a", orig.In[0])
}

func TestSelector_JSONShape(t *testing.T) {
	data, err := json.Marshal(Eq("KT1:1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"$eq":"KT1:1"}`, string(data))

	var sel Selector
	require.NoError(t, json.Unmarshal([]byte(`{"$nin":["a","b"]}`), &sel))
	assert.Equal(t, OpNotIn, sel.Op())
	assert.Equal(t, []string{"a", "b"}, sel.Values())
}
