package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func popAll(s *State) []string {
	var out []string
	for {
		q, ok := s.Pop()
		if !ok {
			return out
		}
		out = append(out, q.URL)
	}
}

func TestState_Ordering(t *testing.T) {
	s := NewState(100)
	s.Push("https://a.org/low", "", 1, 1)
	s.Push("https://a.org/deep", "", 5, 3)
	s.Push("https://a.org/shallow", "", 5, 1)
	s.Push("https://a.org/first", "", 9, 2)
	s.Push("https://a.org/later", "", 5, 1)

	assert.Equal(t, []string{
		"https://a.org/first",
		"https://a.org/shallow",
		"https://a.org/later",
		"https://a.org/deep",
		"https://a.org/low",
	}, popAll(s))
}

func TestState_NoDuplicates(t *testing.T) {
	s := NewState(100)
	assert.True(t, s.Push("https://a.org/mass", "", 3, 1))
	assert.False(t, s.Push("https://A.org/mass/", "", 3, 1))
	assert.False(t, s.Push("https://a.org/mass#sunday", "", 3, 1))
	assert.Equal(t, 1, s.Pending())

	q, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "https://a.org/mass", q.URL)
	assert.True(t, s.Visited("https://a.org/mass/"))

	assert.False(t, s.Push("https://a.org/mass", "", 10, 0), "visited URLs are never queued again")
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestState_RepushRaisesPriority(t *testing.T) {
	s := NewState(100)
	s.Push("https://a.org/a", "", 1, 2)
	s.Push("https://a.org/b", "", 2, 1)
	s.Push("https://a.org/a", "Mass Times", 8, 3)

	q, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "https://a.org/a", q.URL)
	assert.Equal(t, 8.0, q.Priority)
	assert.Equal(t, 2, q.Depth)
}

func TestState_Budget(t *testing.T) {
	s := NewState(2)
	for _, u := range []string{"https://a.org/1", "https://a.org/2", "https://a.org/3"} {
		s.Push(u, "", 0, 1)
	}

	assert.Len(t, popAll(s), 2)
	assert.Equal(t, 0, s.Remaining())
	assert.True(t, s.Exhausted())
	assert.False(t, s.Spend())
}

func TestState_MarkVisitedSkipsQueuedCopy(t *testing.T) {
	s := NewState(10)
	s.Push("https://a.org/x", "", 5, 1)
	s.Push("https://a.org/y", "", 1, 1)
	s.MarkVisited("https://a.org/x/")

	assert.Equal(t, []string{"https://a.org/y"}, popAll(s))
	assert.Equal(t, 9, s.Remaining())
}
