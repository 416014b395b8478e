package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilink/pkg/hw"
)

func TestFIFO(t *testing.T) {
	q := New(4)
	require.True(t, q.IsEmpty())
	require.Equal(t, hw.NoData, q.Pop())
	require.Equal(t, hw.NoData, q.Peek())

	q.Push(1)
	q.Push(2)
	q.Push(3)
	require.Equal(t, 3, q.Len())
	require.Equal(t, uint16(1), q.Peek())
	require.Equal(t, uint16(1), q.Pop())
	require.Equal(t, uint16(2), q.Pop())
	q.Push(4)
	q.Push(5)
	q.Push(6)
	require.True(t, q.IsFull())
	require.False(t, q.Overflowed(false))
	for _, v := range []uint16{3, 4, 5, 6} {
		require.Equal(t, v, q.Pop())
	}
	require.True(t, q.IsEmpty())
}

func TestDropOldest(t *testing.T) {
	cases := []struct {
		name     string
		capacity int
		pushes   int
		want     []uint16
	}{
		{"exact", 3, 3, []uint16{1, 2, 3}},
		{"one over", 3, 4, []uint16{2, 3, 4}},
		{"wrapped twice", 3, 8, []uint16{6, 7, 8}},
		{"default", 0, DefaultCapacity + 1, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q := New(c.capacity)
			for i := 1; i <= c.pushes; i++ {
				q.Push(uint16(i))
			}
			require.Equal(t, c.pushes > q.Cap(), q.Overflowed(true))
			require.False(t, q.Overflowed(false))
			if c.want == nil {
				require.Equal(t, DefaultCapacity, q.Len())
				require.Equal(t, uint16(2), q.Peek())
				return
			}
			var got []uint16
			for !q.IsEmpty() {
				got = append(got, q.Pop())
			}
			require.Equal(t, c.want, got)
		})
	}
}

func TestClear(t *testing.T) {
	q := New(2)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	q.Clear()
	require.True(t, q.IsEmpty())
	require.True(t, q.Overflowed(false))
	q.Push(7)
	require.Equal(t, uint16(7), q.Pop())
}
