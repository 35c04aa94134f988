package index

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxgrid/grib2/griberr"
)

func TestIndexCacheGetMaterializesOnce(t *testing.T) {
	c := NewIndexCache()
	var calls int32

	materialize := func() ([]Record, error) {
		atomic.AddInt32(&calls, 1)
		return []Record{{MsgSeqInFile: 1}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(1, materialize)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIndexCacheRegenerateRematerializes(t *testing.T) {
	c := NewIndexCache()
	n := 0
	materialize := func() ([]Record, error) {
		n++
		return []Record{{MsgSeqInFile: int32(n)}}, nil
	}

	buf1, err := c.Get(2, materialize)
	require.NoError(t, err)
	assert.Equal(t, int32(1), buf1.Records[0].MsgSeqInFile)

	buf2, err := c.Regenerate(2, materialize)
	require.NoError(t, err)
	assert.Equal(t, int32(2), buf2.Records[0].MsgSeqInFile)
}

func TestIndexCacheHandleOutOfRange(t *testing.T) {
	c := NewIndexCache()
	_, err := c.Get(0, func() ([]Record, error) { return nil, nil })
	require.ErrorIs(t, err, griberr.ErrOutOfRange)

	_, err = c.Get(10000, func() ([]Record, error) { return nil, nil })
	require.ErrorIs(t, err, griberr.ErrOutOfRange)
}

func TestIndexCacheReloadFromReplacesEntry(t *testing.T) {
	c := NewIndexCache()
	_, err := c.Get(5, func() ([]Record, error) { return []Record{{MsgSeqInFile: 1}}, nil })
	require.NoError(t, err)

	buf, err := c.ReloadFrom(5, "sibling.idx", []Record{{MsgSeqInFile: 9}})
	require.NoError(t, err)
	assert.Equal(t, "sibling.idx", buf.SourceName)
	assert.Equal(t, int32(9), buf.Records[0].MsgSeqInFile)
}

func TestIndexCacheFinalizeReleasesEntries(t *testing.T) {
	c := NewIndexCache()
	calls := 0
	materialize := func() ([]Record, error) {
		calls++
		return []Record{{}}, nil
	}
	_, err := c.Get(3, materialize)
	require.NoError(t, err)

	c.Finalize()

	_, err = c.Get(3, materialize)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
