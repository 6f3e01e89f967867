package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		// Lowercase
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},

		// Uppercase
		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},

		// Mixed case
		{"Debug", LevelDebug},
		{"Info", LevelInfo},
		{"Warn", LevelWarn},
		{"Warning", LevelWarn},
		{"Error", LevelError},
		{"dEbUg", LevelDebug},

		// Empty string defaults to Info
		{"", LevelInfo},

		// Unrecognized defaults to Info
		{"trace", LevelInfo},
		{"fatal", LevelInfo},
		{"unknown", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"TEXT", FormatText},
		{"", FormatText},
		{"yaml", FormatText}, // unrecognized defaults to text
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseFormat(tt.input)
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNew_Mirror(t *testing.T) {
	var out, mirror bytes.Buffer
	log := New(Config{Level: LevelInfo, Format: FormatText, Output: &out, Mirror: &mirror})

	log.Debug("hidden")
	log.Info("client connected", "id", "abc")

	if !strings.Contains(out.String(), "client connected") {
		t.Errorf("text output missing record: %q", out.String())
	}
	if strings.Contains(out.String(), "hidden") {
		t.Error("debug record should be filtered")
	}
	if !strings.Contains(mirror.String(), `"msg":"client connected"`) {
		t.Errorf("mirror output missing JSON record: %q", mirror.String())
	}
}

func TestNew_JSON(t *testing.T) {
	var out bytes.Buffer
	New(Config{Level: LevelDebug, Format: FormatJSON, Output: &out}).Debug("tick", "n", 1)
	if !strings.Contains(out.String(), `"n":1`) {
		t.Errorf("JSON output = %q", out.String())
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded")
}

func TestLookupLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := LookupLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LookupLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
