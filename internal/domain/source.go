package domain

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language is a source language the pipeline knows how to analyze
type Language string

const (
	LanguageJavaScript Language = "JavaScript"
	LanguagePython     Language = "Python"
	LanguageUnknown    Language = ""
)

// DefaultMaxSourceBytes is the largest file accepted for parsing
const DefaultMaxSourceBytes = 5 * 1024 * 1024

// SupportedExtensions lists file extensions we analyze
var SupportedExtensions = map[string]Language{
	".js":  LanguageJavaScript,
	".jsx": LanguageJavaScript,
	".mjs": LanguageJavaScript,
	".cjs": LanguageJavaScript,
	".py":  LanguagePython,
}

// SourceFile is one submitted file. It is not modified once read.
type SourceFile struct {
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Language Language `json:"language,omitempty"`
}

// NewSourceFile builds a SourceFile and derives its language from the name.
// A file without an extension falls back to its shebang line.
func NewSourceFile(name, content string) SourceFile {
	lang := DetectLanguage(name)
	if lang == LanguageUnknown && filepath.Ext(name) == "" {
		lang = languageByShebang(content)
	}
	return SourceFile{
		Name:     name,
		Content:  content,
		Language: lang,
	}
}

// DetectLanguage maps a file name to a supported language using
// SupportedExtensions, case-insensitively.
func DetectLanguage(name string) Language {
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}

func languageByShebang(content string) Language {
	lang, safe := enry.GetLanguageByShebang([]byte(content))
	if !safe {
		return LanguageUnknown
	}
	switch Language(lang) {
	case LanguageJavaScript, LanguagePython:
		return Language(lang)
	}
	return LanguageUnknown
}

// IsSupported reports whether the language has a parser
func (l Language) IsSupported() bool {
	return l == LanguageJavaScript || l == LanguagePython
}

// Size returns the content size in bytes
func (f SourceFile) Size() int {
	return len(f.Content)
}
