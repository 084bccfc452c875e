package command

import "testing"

func TestParseInput(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantCategory string
		wantQuery    string
		wantOK       bool
	}{
		{"bare command", "/summary", "summary", "", true},
		{"command with query", "/decision what did we pick for auth?", "decision", "what did we pick for auth?", true},
		{"uppercase command", "/DECISION auth", "decision", "auth", true},
		{"leading whitespace", "  /action ship it  ", "action", "ship it", true},
		{"all categories", "/constraint", "constraint", "", true},
		{"question", "/question open items", "question", "open items", true},
		{"assumption", "/assumption", "assumption", "", true},
		{"suggestion", "/suggestion", "suggestion", "", true},
		{"unknown command", "/deploy now", "", "", false},
		{"plain text", "hello there", "", "", false},
		{"slash mid-sentence", "see /summary above", "", "", false},
		{"bare slash", "/", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, query, ok := ParseInput(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseInput(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if category != tt.wantCategory || query != tt.wantQuery {
				t.Errorf("ParseInput(%q) = (%q, %q), want (%q, %q)",
					tt.input, category, query, tt.wantCategory, tt.wantQuery)
			}
		})
	}
}
