// Package language detects source languages using chroma's lexer registry.
package language

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Detector implements the interface.
var _ driven.LanguageDetector = (*Detector)(nil)

// aliases maps chroma lexer names (lowercased) to language ids where the
// two differ. Names not listed are used as-is.
var aliases = map[string]string{
	"tsx":         "typescript",
	"react":       "javascript",
	"python 2":    "python",
	"python 3":    "python",
	"c#":          "csharp",
	"c++":         "cpp",
	"objective-c": "objc",
	"bash":        "shell",
	"plaintext":   "",
	"plain text":  "",
	"text only":   "",
}

// Detector names languages by filename first and content second.
type Detector struct {
	// AnalyseContent enables content sniffing when the filename is unknown.
	AnalyseContent bool
}

// NewDetector creates a detector with content sniffing enabled.
func NewDetector() *Detector {
	return &Detector{AnalyseContent: true}
}

// Detect returns a lowercase language id or "".
func (d *Detector) Detect(path, content string) string {
	if lexer := lexers.Match(filepath.Base(path)); lexer != nil {
		return languageID(lexer)
	}
	if d.AnalyseContent && strings.TrimSpace(content) != "" {
		if lexer := lexers.Analyse(content); lexer != nil {
			return languageID(lexer)
		}
	}
	return ""
}

func languageID(lexer chroma.Lexer) string {
	cfg := lexer.Config()
	if cfg == nil {
		return ""
	}
	name := strings.ToLower(cfg.Name)
	if id, ok := aliases[name]; ok {
		return id
	}
	return strings.ReplaceAll(name, " ", "-")
}
