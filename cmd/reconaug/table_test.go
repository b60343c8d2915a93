package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	writeSimpleTable(&buf, []string{"PORT", "SERVICE"}, [][]string{
		{"80", "HTTP"},
		{"8443", "HTTPS-Alt"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "PORT | SERVICE  ", lines[0])
	assert.Equal(t, "-----+----------", lines[1])
	assert.Equal(t, "8443 | HTTPS-Alt", lines[3])
}

func TestWriteTableBordered(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []string{"Target"}, [][]string{{"example.com"}})

	assert.Contains(t, buf.String(), "example.com")
	assert.Contains(t, buf.String(), "╭")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
