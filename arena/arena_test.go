package arena

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMonotonic(t *testing.T) {
	a := New[byte](64)

	regions := []struct {
		src []byte
		n   int
		pos int
	}{
		{[]byte{1, 2, 3, 4}, 4, 0},
		{[]byte{1, 2, 3, 4, 5, 6}, 3, 2},
		{[]byte{9}, 5, 0},
		{nil, 2, -1},
	}

	prevEnd := 0
	for i, r := range regions {
		off, err := a.Store(r.src, r.n, r.pos)
		require.NoError(t, err, "store %d", i)
		assert.Equal(t, prevEnd, off, "store %d offset", i)
		assert.LessOrEqual(t, off+r.n, a.Cap())
		prevEnd = off + r.n
	}
	assert.Equal(t, prevEnd, a.Len())

	assert.Equal(t, []byte{1, 2, 3, 4, 3, 4, 5, 9, 0, 0, 0, 0, 0, 0}, a.Data())
}

func TestStoreTruncatedSource(t *testing.T) {
	a := New[int8](16)
	off, err := a.Store([]int8{5, 6}, 4, 1)
	require.NoError(t, err)
	region, err := a.Slice(off, 4)
	require.NoError(t, err)
	assert.Equal(t, []int8{6, 0, 0, 0}, region)

	// Position past the source end stores a silent region.
	off, err = a.Store([]int8{5, 6}, 2, 10)
	require.NoError(t, err)
	region, err = a.Slice(off, 2)
	require.NoError(t, err)
	assert.Equal(t, []int8{0, 0}, region)
}

func TestStoreCapacity(t *testing.T) {
	a := New[float32](4)
	_, err := a.Append(1, 2, 3)
	require.NoError(t, err)

	_, err = a.Append(4, 5)
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 3, a.Len(), "failed store must not partially append")

	_, err = a.Append(4)
	require.NoError(t, err)
	assert.Equal(t, a.Cap(), a.Len())
}

func TestStoreHugeLength(t *testing.T) {
	a := New[byte](16)
	_, err := a.Append(1, 2, 3, 4)
	require.NoError(t, err)

	_, err = a.Store(nil, math.MaxInt, 0)
	require.ErrorIs(t, err, ErrFull)
	_, err = StoreFrom(a, bytes.NewReader(nil), math.MaxInt)
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 4, a.Len())
}

func TestFreeze(t *testing.T) {
	a := New[byte](8)
	a.Freeze()
	_, err := a.Append(1)
	assert.ErrorIs(t, err, ErrFrozen)
	assert.True(t, a.Frozen())
}

func TestCheckedAccess(t *testing.T) {
	a := New[byte](8)
	_, err := a.Append(1, 2, 3)
	require.NoError(t, err)

	v, err := a.At(2)
	require.NoError(t, err)
	assert.Equal(t, byte(3), v)

	tests := []struct {
		off int
		n   int
	}{
		{-1, 1},
		{0, 4},
		{3, 1},
		{2, -1},
	}
	for _, test := range tests {
		_, err := a.Slice(test.off, test.n)
		var rangeErr *RangeError
		require.True(t, errors.As(err, &rangeErr), "Slice(%d, %d)", test.off, test.n)
		assert.Equal(t, 3, rangeErr.Len)
	}

	_, err = a.At(3)
	assert.Error(t, err)
}

func TestStoreFrom(t *testing.T) {
	a := New[byte](16)
	_, err := a.Append(7)
	require.NoError(t, err)

	off, err := StoreFrom(a, bytes.NewReader([]byte{1, 2, 3}), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, off)
	region, err := a.Slice(off, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0, 0}, region)

	_, err = StoreFrom(a, iotest.ErrReader(errors.New("disk on fire")), 2)
	require.Error(t, err)
	assert.Equal(t, 6, a.Len())

	_, err = StoreFrom(a, bytes.NewReader(nil), 32)
	assert.ErrorIs(t, err, ErrFull)
}
