package main

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1 << 20, "1.0 MB"},
		{5 << 20, "5.0 MB"},
		{1 << 30, "1.0 GB"},
		{1 << 40, "1.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	thisYear := time.Date(now.Year(), time.March, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mar  5 14:30", formatTime(thisYear))

	lastYear := time.Date(now.Year()-1, time.March, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mar  5  "+lastYear.Format("2006"), formatTime(lastYear))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"NAME", "SIZE"}, [][]string{
		{"a.txt", "1.0 KB"},
		{"longer-name.pdf", "5 B"},
	})

	want := fmt.Sprintf("%-15s  %-6s\n", "NAME", "SIZE") +
		fmt.Sprintf("%-15s  %-6s\n", "a.txt", "1.0 KB") +
		fmt.Sprintf("%-15s  %-6s\n", "longer-name.pdf", "5 B")
	assert.Equal(t, want, buf.String())
}

func TestPrintTable_Empty(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"NAME"}, nil)
	assert.Equal(t, "NAME\n", buf.String())
}
