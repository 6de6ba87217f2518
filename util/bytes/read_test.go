package bytesutil

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadUntil(t *testing.T) {
	sample := []byte("Hello, World!")

	testcases := []struct {
		desc     string
		delim    []byte
		limit    uint
		expected []byte
		wantErr  error
	}{
		{
			desc:     "sample",
			delim:    []byte("Wo"),
			expected: []byte("Hello, Wo"),
		},
		{
			desc:     "delimiter repeated byte",
			delim:    []byte("!"),
			expected: sample,
		},
		{
			desc:    "not found",
			delim:   []byte("Bye!"),
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			desc:    "limit exceeded",
			delim:   []byte("!"),
			limit:   5,
			wantErr: ErrLimitExceeded,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := bufio.NewReader(bytes.NewReader(sample))
			b, err := ReadUntil(r, tc.delim, tc.limit)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, b)
		})
	}
}

func TestReadUntilLongLine(t *testing.T) {
	line := append(bytes.Repeat([]byte("a"), 64), '\r', '\n')
	r := bufio.NewReaderSize(bytes.NewReader(line), 16)

	b, err := ReadUntil(r, []byte("\r\n"), 0)
	assert.NoError(t, err)
	assert.Equal(t, line, b)
}

func TestReadUntilEmpty(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader(nil))

	_, err := ReadUntil(r, []byte("\n"), 0)
	assert.Equal(t, io.EOF, err)
}
