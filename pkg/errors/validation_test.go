package errors

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://api.openai.com", false},
		{"http localhost", "http://localhost:8080", false},

		{"empty", "", true},
		{"no scheme", "api.openai.com", true},
		{"ftp", "ftp://example.com", true},
		{"trailing slash", "https://api.openai.com/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeConfiguration) {
				t.Errorf("ValidateURL(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeConfiguration)
			}
		})
	}
}

func TestValidateModelID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "gpt-4o", false},
		{"dated", "gpt-4o-mini-2024-07-18", false},
		{"namespaced", "openai/gpt-4.1", false},

		{"empty", "", true},
		{"space", "gpt 4", true},
		{"newline", "gpt-4\n", true},
		{"too long", string(make([]byte, 200)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModelID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModelID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExecutable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare name", "dot", false},
		{"absolute", "/usr/local/bin/dot", false},
		{"windows", `C:\Program Files\Graphviz\bin\dot.exe`, false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"flag", "-Tsvg", true},
		{"null byte", "dot\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExecutable(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExecutable(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
