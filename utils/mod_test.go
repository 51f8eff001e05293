package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeque(t *testing.T) {
	t.Run("rotating tail to head", func(t *testing.T) {
		s := []int{1, 2, 3}

		item, s := PopBack(s)
		s = PushFront(s, item)

		require.Equal(t, 3, item)
		require.Equal(t, []int{3, 1, 2}, s, "Tail should move to the head")
	})

	t.Run("push front on empty", func(t *testing.T) {
		require.Equal(t, []string{"a"}, PushFront([]string(nil), "a"))
	})
}
