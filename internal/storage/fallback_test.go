package storage

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/readbench/internal/dfs"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// simulatedFile serves data from memory and records which read calls were made.
type simulatedFile struct {
	data    []byte
	pos     int
	zeroErr error // returned by every ReadZero call when set

	zeroCalls     int
	standardCalls int
	released      int
}

type simBuffer struct {
	data []byte
	file *simulatedFile
}

func (b *simBuffer) Bytes() []byte { return b.data }
func (b *simBuffer) Release()      { b.file.released++ }

func (f *simulatedFile) Read(p []byte) (int, error) {
	f.standardCalls++
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *simulatedFile) ReadZero(maxLen int) (dfs.ZeroCopyBuffer, error) {
	f.zeroCalls++
	if f.zeroErr != nil {
		return nil, f.zeroErr
	}
	if f.pos >= len(f.data) {
		return nil, io.EOF
	}
	end := f.pos + maxLen
	if end > len(f.data) {
		end = len(f.data)
	}
	b := &simBuffer{data: f.data[f.pos:end], file: f}
	f.pos = end
	return b, nil
}

func drain(t *testing.T, r *FallbackReader, chunk int) []byte {
	t.Helper()
	var out bytes.Buffer
	for {
		n, err := r.ReadChunk(chunk, func(p []byte) { out.Write(p) })
		require.NoError(t, err)
		if n == 0 {
			return out.Bytes()
		}
	}
}

func TestFallback_UnsupportedTransitionsOnFirstCall(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 1000)
	f := &simulatedFile{data: data, zeroErr: dfs.ErrNotSupported}

	var causes []error
	r := NewFallbackReader(f, false, func(cause error) { causes = append(causes, cause) })
	assert.Equal(t, StateAttemptingZeroCopy, r.State())
	assert.Equal(t, types.ReadModeZeroCopy, r.Mode())

	got := drain(t, r, 4096)

	assert.Equal(t, data, got)
	assert.Equal(t, 1, f.zeroCalls, "zero-copy must be attempted exactly once")
	assert.Equal(t, StateStandardRead, r.State())
	assert.Equal(t, types.ReadModeStandard, r.Mode())
	require.Len(t, causes, 1)
	assert.Equal(t, benchErrors.ErrCategoryUnsupported, benchErrors.GetCategory(causes[0]))
	assert.True(t, benchErrors.IsRecoverable(causes[0]))
}

func TestFallback_FirstRequestReservedByStandardRead(t *testing.T) {
	f := &simulatedFile{data: []byte("0123456789"), zeroErr: dfs.ErrNotSupported}
	r := NewFallbackReader(f, false, nil)

	var got []byte
	n, err := r.ReadChunk(4, func(p []byte) { got = append(got, p...) })

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("0123"), got)
	assert.Equal(t, 1, f.standardCalls)
}

func TestFallback_WrappedUnsupportedAlsoTransitions(t *testing.T) {
	f := &simulatedFile{
		data:    []byte("payload"),
		zeroErr: errors.Join(errors.New("hadoopReadZero: EOPNOTSUPP"), dfs.ErrNotSupported),
	}
	r := NewFallbackReader(f, false, nil)

	assert.Equal(t, []byte("payload"), drain(t, r, 3))
	assert.Equal(t, StateStandardRead, r.State())
}

func TestFallback_ZeroCopySuccessNeverUsesStandard(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 10000)
	f := &simulatedFile{data: data}
	r := NewFallbackReader(f, false, func(error) { t.Fatal("unexpected fallback") })

	got := drain(t, r, 4096)

	assert.Equal(t, data, got)
	assert.Equal(t, 0, f.standardCalls)
	assert.Equal(t, 4, f.zeroCalls) // 3 data buffers plus EOF
	assert.Equal(t, 3, f.released, "every buffer must be released")
	assert.Equal(t, StateAttemptingZeroCopy, r.State())
}

func TestFallback_OtherZeroCopyErrorIsFatal(t *testing.T) {
	f := &simulatedFile{data: []byte("data"), zeroErr: errors.New("checksum error")}
	r := NewFallbackReader(f, false, nil)

	n, err := r.ReadChunk(4, func([]byte) { t.Fatal("no data expected") })

	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.Equal(t, benchErrors.ErrCategoryRead, benchErrors.GetCategory(err))
	assert.Equal(t, benchErrors.CodeZeroCopyFailed, benchErrors.GetCode(err))
	assert.False(t, benchErrors.IsRecoverable(err))
	assert.Equal(t, 0, f.standardCalls)
	assert.Equal(t, StateAttemptingZeroCopy, r.State())
}

func TestFallback_ForceStandardSkipsZeroCopy(t *testing.T) {
	f := &simulatedFile{data: []byte("forced")}
	r := NewFallbackReader(f, true, nil)

	assert.Equal(t, StateStandardRead, r.State())
	assert.Equal(t, []byte("forced"), drain(t, r, 2))
	assert.Equal(t, 0, f.zeroCalls)
}

func TestFallback_EmptyFile(t *testing.T) {
	f := &simulatedFile{}
	r := NewFallbackReader(f, false, nil)

	n, err := r.ReadChunk(4096, func([]byte) { t.Fatal("no data expected") })
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFallbackState_String(t *testing.T) {
	assert.Equal(t, "attempting-zero-copy", StateAttemptingZeroCopy.String())
	assert.Equal(t, "standard-read", StateStandardRead.String())
	assert.Equal(t, "FallbackState(9)", FallbackState(9).String())
}
