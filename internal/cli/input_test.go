package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText_TrimsLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  arid-123  \n"))
	var out bytes.Buffer

	got, err := GetSimpleText(reader, "Authorized request id", &out)
	require.NoError(t, err)
	assert.Equal(t, "arid-123", got)
	assert.Contains(t, out.String(), "Authorized request id")
}

func TestGetSimpleText_PartialLineOnEOF(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("arid-123"))
	var out bytes.Buffer

	got, err := GetSimpleText(reader, "Authorized request id", &out)
	require.NoError(t, err)
	assert.Equal(t, "arid-123", got)
}

func TestGetSecret_UsesTerminalReader(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func(fd int) ([]byte, error) {
		return []byte("hunter2"), nil
	}

	var out bytes.Buffer
	secret, err := GetSecret(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret)
	assert.NotContains(t, out.String(), "hunter2")
}
