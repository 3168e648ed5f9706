package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid name", "alice", false},
		{"two characters", "al", false},
		{"padded", "   al   ", false},
		{"too short", "a", true},
		{"only spaces", "    ", true},
		{"empty", "", true},
		{"thirty characters", strings.Repeat("a", 30), false},
		{"too long", strings.Repeat("a", 31), true},
		{"multibyte counted as runes", strings.Repeat("é", 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDisplayName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePartyID(t *testing.T) {
	tests := []struct {
		name    string
		partyID string
		wantErr bool
	}{
		{"uuid", "3f2c1a4e-8b7d-4c2e-9f1a-2b3c4d5e6f70", false},
		{"empty", "", true},
		{"path traversal", "../parties", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePartyID(tt.partyID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePartyID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/embed/dQw4w9WgXcQ?start=3", "dQw4w9WgXcQ", true},
		{"lofi hip hop radio", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractVideoID(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractVideoID(%q) = %q, %v", tt.input, got, ok)
		}
	}
}

func TestValidatorStruct(t *testing.T) {
	type payload struct {
		VideoID string `json:"videoId" validate:"required"`
		Index   int    `json:"index" validate:"gte=0"`
	}
	v := NewValidator()

	if err := v.Struct(payload{VideoID: "abc", Index: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := v.Struct(payload{Index: -1})
	var serr *StructError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StructError, got %v", err)
	}
	if len(serr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(serr.Fields))
	}
	if serr.Fields[0].Field != "payload.videoId" {
		t.Errorf("unexpected field name %q", serr.Fields[0].Field)
	}
}
