package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		name string
		want Language
	}{
		{"index.js", JavaScript},
		{"App.JSX", JavaScript},
		{"main.ts", TypeScript},
		{"view.tsx", TypeScript},
		{"script.py", Python},
		{"index.html", HTML},
		{"style.css", CSS},
		{"package.json", JSON},
		{"README.md", Markdown},
		{"main.cpp", CPP},
		{"util.c", CPP},
		{"lib.rs", Rust},
		{"main.go", Go},
		{"Main.java", Java},
		{"notes.txt", PlainText},
		{"Makefile", PlainText},
		{"archive.tar.gz", PlainText},
		{"", PlainText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionOf(tt.name))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Javascript", JavaScript.DisplayName())
	assert.Equal(t, "Plaintext", PlainText.DisplayName())
	assert.Equal(t, "C++", CPP.DisplayName())
}
