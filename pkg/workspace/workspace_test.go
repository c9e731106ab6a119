package workspace

import "testing"

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{key: "default"},
		{key: "my-project_2"},
		{key: "v1.2"},
		{key: "", wantErr: true},
		{key: "team/project", wantErr: true},
		{key: `C:\work`, wantErr: true},
		{key: "two words", wantErr: true},
		{key: "tab\there", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	w := &Workspace{Key: "scratch"}
	if got := w.DisplayName(); got != "scratch" {
		t.Errorf("Expected key as display name, got %q", got)
	}

	w.Title = "Scratch pad"
	if got := w.DisplayName(); got != "Scratch pad" {
		t.Errorf("Expected title as display name, got %q", got)
	}
}
