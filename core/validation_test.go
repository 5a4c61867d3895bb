package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Name:   "readme.md",
				Source: SourceFile,
				Class:  ClassMarkdown,
			},
			wantErr: nil,
		},
		{
			name: "valid document with ID 0 and no class yet",
			doc: &Document{
				Name: "notes.txt",
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty name",
			doc: &Document{
				Source: SourceFile,
			},
			wantErr: ErrEmptyName,
		},
		{
			name: "unknown source type",
			doc: &Document{
				Name:   "a.txt",
				Source: "ftp",
			},
			wantErr: ErrInvalidSourceType,
		},
		{
			name: "unknown class",
			doc: &Document{
				Name:  "a.txt",
				Class: "spreadsheet",
			},
			wantErr: ErrInvalidClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	valid := func() *Chunk {
		return &Chunk{
			DocumentId:  1,
			Version:     1,
			Content:     "some chunk content",
			StartOffset: 0,
			EndOffset:   18,
			TokenCount:  5,
			Class:       ClassText,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Chunk)
		wantErr error
	}{
		{
			name:    "valid chunk",
			mutate:  func(*Chunk) {},
			wantErr: nil,
		},
		{
			name:    "empty content",
			mutate:  func(c *Chunk) { c.Content = "" },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "negative start offset",
			mutate:  func(c *Chunk) { c.StartOffset = -1 },
			wantErr: ErrInvalidOffsets,
		},
		{
			name:    "start not before end",
			mutate:  func(c *Chunk) { c.StartOffset, c.EndOffset = 10, 10 },
			wantErr: ErrInvalidOffsets,
		},
		{
			name:    "zero token count",
			mutate:  func(c *Chunk) { c.TokenCount = 0 },
			wantErr: ErrInvalidTokenCount,
		},
		{
			name:    "unknown class",
			mutate:  func(c *Chunk) { c.Class = "binary" },
			wantErr: ErrInvalidClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := valid()
			tt.mutate(chunk)
			err := ValidateChunk(chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSearchRequest(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		req     *SearchRequest
		wantErr error
	}{
		{
			name:    "valid request",
			req:     &SearchRequest{Query: "how does indexing work"},
			wantErr: nil,
		},
		{
			name:    "nil request",
			req:     nil,
			wantErr: ErrInvalidSearchRequest,
		},
		{
			name:    "empty query",
			req:     &SearchRequest{},
			wantErr: ErrEmptyQuery,
		},
		{
			name: "unknown filter class",
			req: &SearchRequest{
				Query:   "q",
				Filters: SearchFilters{Classes: []DocumentClass{"binary"}},
			},
			wantErr: ErrInvalidClass,
		},
		{
			name: "inverted date range",
			req: &SearchRequest{
				Query:   "q",
				Filters: SearchFilters{After: now, Before: now.Add(-time.Hour)},
			},
			wantErr: ErrInvalidSearchRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchRequest(tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSearchRequest() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSearchRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
