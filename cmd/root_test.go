package cmd

import "testing"

func TestParseLilyMinor(t *testing.T) {
	tests := []struct {
		version string
		want    int
		wantErr bool
	}{
		{"2.18", 18, false},
		{"2.22", 22, false},
		{"2.24.1", 24, false},
		{"3.0", 0, true},
		{"2", 0, true},
		{"2.x", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLilyMinor(tt.version)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLilyMinor(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLilyMinor(%q) = %d, want %d", tt.version, got, tt.want)
		}
	}
}
