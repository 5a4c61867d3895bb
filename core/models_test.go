package core

import (
	"testing"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same hash",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := HashContent(tt.content)
			h2 := HashContent(tt.content)

			if h1 != h2 {
				t.Errorf("HashContent() produced different hashes for same content: %d vs %d", h1, h2)
			}
		})
	}
}

func TestHashContent_Different(t *testing.T) {
	h1 := HashContent("content1")
	h2 := HashContent("content2")

	if h1 == h2 {
		t.Errorf("HashContent() produced same hash for different content")
	}
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		want   DocumentClass
		wantOk bool
	}{
		{
			name:   "known class",
			label:  "code",
			want:   ClassCode,
			wantOk: true,
		},
		{
			name:   "mixed is known",
			label:  "mixed",
			want:   ClassMixed,
			wantOk: true,
		},
		{
			name:   "unknown label falls back to mixed",
			label:  "spreadsheet",
			want:   ClassMixed,
			wantOk: false,
		},
		{
			name:   "empty label falls back to mixed",
			label:  "",
			want:   ClassMixed,
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseClass(tt.label)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("ParseClass(%q) = (%v, %v), want (%v, %v)", tt.label, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	if JobPending.Terminal() || JobProcessing.Terminal() {
		t.Errorf("pending/processing must not be terminal")
	}
	if !JobCompleted.Terminal() || !JobFailed.Terminal() {
		t.Errorf("completed/failed must be terminal")
	}
}
