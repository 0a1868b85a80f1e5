package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueIDs(t *testing.T) {
	a := New("checkout")
	b := New("checkout")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "scenarios sharing a name must get distinct IDs")
	assert.Equal(t, "checkout", a.Name)
}

func TestKeyFromContext(t *testing.T) {
	t.Run("unbound context", func(t *testing.T) {
		_, err := KeyFromContext(context.Background())
		assert.ErrorIs(t, err, ErrNoScenario)
	})

	t.Run("bound context", func(t *testing.T) {
		sc := New("login")
		ctx := WithScenario(context.Background(), sc)

		key, err := KeyFromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, sc.ID, key)

		got, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, sc.Name, got.Name)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		ctx := WithScenario(context.Background(), Scenario{Name: "no id"})
		_, err := KeyFromContext(ctx)
		assert.ErrorIs(t, err, ErrNoScenario)
	})
}

func TestValues_ScopedPerScenario(t *testing.T) {
	ctxA := WithScenario(context.Background(), New("a"))
	ctxB := WithScenario(context.Background(), New("b"))

	va, err := ValuesFromContext(ctxA)
	require.NoError(t, err)
	vb, err := ValuesFromContext(ctxB)
	require.NoError(t, err)

	va.Put("user", "alice")
	va.Put("count", 3)

	_, ok := vb.Get("user")
	assert.False(t, ok, "values must not leak across scenarios")

	s, ok := va.GetString("count")
	require.True(t, ok)
	assert.Equal(t, "3", s)
	assert.Equal(t, 2, va.Len())

	va.Clear()
	assert.Equal(t, 0, va.Len())

	_, err = ValuesFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoScenario)
}

func TestOutcome_Failed(t *testing.T) {
	assert.True(t, OutcomeFailed.Failed())
	assert.True(t, OutcomeAborted.Failed())
	assert.False(t, OutcomePassed.Failed())
	assert.False(t, OutcomeSkipped.Failed())
}

func TestScenario_HasTag(t *testing.T) {
	sc := New("tagged", "smoke", "Web")
	assert.True(t, sc.HasTag("web"))
	assert.False(t, sc.HasTag("slow"))
}
