package language

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Language is the semantic tag the editor uses for syntax highlighting.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	HTML       Language = "html"
	CSS        Language = "css"
	JSON       Language = "json"
	Markdown   Language = "markdown"
	CPP        Language = "cpp"
	Rust       Language = "rust"
	Go         Language = "go"
	Java       Language = "java"
	PlainText  Language = "plaintext"
)

var byExtension = map[string]Language{
	"js":   JavaScript,
	"jsx":  JavaScript,
	"ts":   TypeScript,
	"tsx":  TypeScript,
	"py":   Python,
	"html": HTML,
	"css":  CSS,
	"json": JSON,
	"md":   Markdown,
	"cpp":  CPP,
	"c":    CPP,
	"rs":   Rust,
	"go":   Go,
	"java": Java,
}

// ExtensionOf classifies a file name by its lower-cased extension.
func ExtensionOf(fileName string) Language {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if lang, ok := byExtension[strings.ToLower(ext)]; ok {
		return lang
	}
	return PlainText
}

// DisplayName returns a human readable label, e.g. "Javascript".
func (l Language) DisplayName() string {
	if l == CPP {
		return "C++"
	}
	return cases.Title(language.English).String(string(l))
}
