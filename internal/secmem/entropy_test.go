package secmem

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockReaderNotConfigured = errors.New("mock reader not configured")

// mockReader implements io.Reader for testing.
type mockReader struct {
	readFunc func(p []byte) (int, error)
}

func (m *mockReader) Read(p []byte) (int, error) {
	if m.readFunc != nil {
		return m.readFunc(p)
	}
	return 0, errMockReaderNotConfigured
}

func TestRandomBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       int
		wantLen int
	}{
		{name: "zero bytes", n: 0, wantLen: 0},
		{name: "16 bytes", n: 16, wantLen: 16},
		{name: "32 bytes", n: 32, wantLen: 32},
		{name: "64 bytes", n: 64, wantLen: 64},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := RandomBytes(tc.n)
			require.NoError(t, err)
			assert.Len(t, b, tc.wantLen)
		})
	}
}

func TestRandomBytes_Unique(t *testing.T) {
	t.Parallel()
	a, err := RandomBytes(32)
	require.NoError(t, err)
	b, err := RandomBytes(32)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(a, b), "two random draws must differ")
}

func TestRandomBytes_ReaderFailure(t *testing.T) {
	// Not parallel: swaps the package-level Reader.
	original := Reader
	defer func() { Reader = original }()

	Reader = &mockReader{readFunc: func(_ []byte) (int, error) {
		return 0, io.ErrUnexpectedEOF
	}}

	_, err := RandomBytes(32)
	require.Error(t, err)
}

func TestSecureRandomBytes(t *testing.T) {
	t.Parallel()
	sb, err := SecureRandomBytes(32)
	require.NoError(t, err)
	defer sb.Destroy()

	assert.Len(t, sb.Bytes(), 32)

	// All-zero output from a CSPRNG is effectively impossible
	assert.NotEqual(t, make([]byte, 32), sb.Bytes())
}
