package heuristic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ByExtension(t *testing.T) {
	classifier := NewClassifier()
	ctx := context.Background()

	tests := []struct {
		name string
		want string
	}{
		{"main.go", "code"},
		{"script.py", "code"},
		{"README.md", "markdown"},
		{"data.csv", "table"},
		{"settings.yaml", "config"},
		{"app.log", "log"},
		{"notes.txt", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifier.Classify(ctx, tt.name, "irrelevant content")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ByContent(t *testing.T) {
	classifier := NewClassifier()
	ctx := context.Background()

	tests := []struct {
		name   string
		sample string
		want   string
	}{
		{
			name: "code without extension",
			sample: `func main() {
	x := compute()
	return x;
}
func compute() {
	return 42;
}`,
			want: "code",
		},
		{
			name: "markdown headers",
			sample: `# Title
## Section one
## Section two
# Another title`,
			want: "markdown",
		},
		{
			name: "log lines",
			sample: `2026-01-02 10:00:01 INFO started
2026-01-02 10:00:02 WARN retrying
2026-01-02 10:00:03 ERROR gave up`,
			want: "log",
		},
		{
			name: "pipe table",
			sample: `| id | name |
| 1 | alpha |
| 2 | beta |`,
			want: "table",
		},
		{
			name: "key value config",
			sample: `host = localhost
port = 5432
user = admin
timeout = 30`,
			want: "config",
		},
		{
			name:   "plain prose",
			sample: "This is just a paragraph of ordinary prose.\nIt talks about nothing structured at all.",
			want:   "text",
		},
		{
			name:   "empty sample",
			sample: "",
			want:   "text",
		},
		{
			name: "competing signals read as mixed",
			sample: `# Heading
## Another heading
2026-01-02 10:00:01 INFO line
2026-01-02 10:00:02 INFO line`,
			want: "mixed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifier.Classify(ctx, "unknown", tt.sample)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", DetectLanguage("hello there, plain english text"))
	assert.Equal(t, "ru", DetectLanguage("привет, это русский текст"))
	assert.Equal(t, "", DetectLanguage("12345 !!! ..."))
	// Mixed text with a substantial cyrillic share counts as russian.
	assert.Equal(t, "ru", DetectLanguage("config файл настройки сервера"))
}
