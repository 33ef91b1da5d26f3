package inputguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNonPositiveMax(t *testing.T) {
	for _, n := range []int{0, -1} {
		g, err := New(n)
		assert.ErrorIs(t, err, ErrInvalidMaxLength)
		assert.Nil(t, g)
	}
}

func TestGuard_Thresholds(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		max      int
		wantNear bool
		wantAt   bool
		want     Level
	}{
		{"empty", 0, 1000, false, false, LevelNormal},
		{"below near", 899, 1000, false, false, LevelNormal},
		{"exactly near", 900, 1000, true, false, LevelNear},
		{"near", 950, 1000, true, false, LevelNear},
		{"exactly at", 1000, 1000, true, true, LevelAt},
		{"past at", 1200, 1000, true, true, LevelAt},
		{"tiny max", 1, 1, true, true, LevelAt},
		{"rounding", 9, 10, true, false, LevelNear},
		{"rounding below", 8, 10, false, false, LevelNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.max)
			require.NoError(t, err)
			g.SetText(strings.Repeat("a", tt.length))

			assert.Equal(t, tt.length, g.Length())
			assert.Equal(t, tt.wantNear, g.IsNearLimit())
			assert.Equal(t, tt.wantAt, g.IsAtLimit())
			assert.Equal(t, tt.want, g.Level())
		})
	}
}

func TestGuard_ThresholdImplications(t *testing.T) {
	for max := 1; max <= 60; max++ {
		g, err := New(max)
		require.NoError(t, err)
		for n := 0; n <= max+5; n++ {
			g.SetText(strings.Repeat("x", n))
			if g.IsAtLimit() {
				assert.True(t, g.IsNearLimit(), "max=%d n=%d", max, n)
				assert.GreaterOrEqual(t, g.Length(), max)
			}
			if g.IsNearLimit() {
				assert.GreaterOrEqual(t, float64(g.Length()), 0.9*float64(max), "max=%d n=%d", max, n)
			}
		}
	}
}

func TestGuard_RecomputesOnMaxChange(t *testing.T) {
	g, err := New(1000)
	require.NoError(t, err)
	g.SetText(strings.Repeat("a", 100))
	assert.Equal(t, LevelNormal, g.Level())

	require.NoError(t, g.SetMaxLength(100))
	assert.Equal(t, LevelAt, g.Level())

	assert.ErrorIs(t, g.SetMaxLength(0), ErrInvalidMaxLength)
	assert.Equal(t, 100, g.MaxLength())
}

func TestGuard_LengthCountsCharacters(t *testing.T) {
	g, err := New(10)
	require.NoError(t, err)
	g.SetText("héllo wörld")
	assert.Equal(t, 11, g.Length())
	assert.True(t, g.IsAtLimit())
}

func TestGuard_Clear(t *testing.T) {
	t.Run("no handler", func(t *testing.T) {
		g, _ := New(10)
		g.SetText("abc")
		assert.False(t, g.CanClear())
		assert.False(t, g.Clear())
		assert.Equal(t, "abc", g.Text())
	})

	t.Run("clears and notifies", func(t *testing.T) {
		g, _ := New(10)
		calls := 0
		g.SetClearHandler(func() { calls++ })
		g.SetText("abc")
		assert.True(t, g.CanClear())
		assert.True(t, g.Clear())
		assert.Equal(t, "", g.Text())
		assert.Equal(t, 0, g.Length())
		assert.Equal(t, 1, calls)
	})

	t.Run("already empty", func(t *testing.T) {
		g, _ := New(10)
		calls := 0
		g.SetClearHandler(func() { calls++ })
		assert.False(t, g.Clear())
		assert.Equal(t, 0, calls)
	})

	t.Run("disabled", func(t *testing.T) {
		g, _ := New(10)
		calls := 0
		g.SetClearHandler(func() { calls++ })
		g.SetText("abc")
		g.SetDisabled(true)
		assert.False(t, g.CanClear())
		assert.False(t, g.Clear())
		assert.Equal(t, "abc", g.Text())
		assert.Equal(t, 0, calls)
	})
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "normal", LevelNormal.String())
	assert.Equal(t, "near-limit", LevelNear.String())
	assert.Equal(t, "at-limit", LevelAt.String())
}
