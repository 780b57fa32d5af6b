package ai

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCareTips(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "Bright shade. Keep soil moist.", "Bright shade. Keep soil moist.", nil},
		{"markdown", "**Light:** bright shade\n\n* Water weekly", "Light: bright shade Water weekly", nil},
		{"numbered", "1. Full sun\n2) Sandy soil", "Full sun Sandy soil", nil},
		{"empty", "  \n ", "", ErrParseFailed},
		{"unknown", "UNKNOWN.", "", ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCareTips(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err=%v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestParseCareTipsTruncatesAtSentence(t *testing.T) {
	long := strings.Repeat("Water the roots deeply. ", 60)
	got, err := ParseCareTips(long)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len([]rune(got)) > MaxCareTipsLen {
		t.Fatalf("len=%d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected sentence end, got %q", got[len(got)-10:])
	}
}

func TestBuildCareTipsPrompt(t *testing.T) {
	_, input := BuildCareTipsPrompt(" Oak ", "Quercus robur", "")
	if input != "Name: Oak\nScientific name: Quercus robur\n" {
		t.Fatalf("input=%q", input)
	}
}
