package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "first three tokens",
			content: "I feel anxious today about work",
			want:    "I feel anxious",
		},
		{
			name:    "fewer than three tokens",
			content: "Hello",
			want:    "Hello",
		},
		{
			name:    "collapses whitespace",
			content: "  how   are\tyou doing  ",
			want:    "how are you",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
		{
			name:    "whitespace only",
			content: "   \n\t ",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.content))
		})
	}
}

func TestDeriveTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 20) + " " + strings.Repeat("b", 20) + " " + strings.Repeat("c", 20)
	title := DeriveTitle(long)

	assert.True(t, strings.HasSuffix(title, "..."))
	assert.Equal(t, 30, len([]rune(strings.TrimSuffix(title, "..."))))
}
