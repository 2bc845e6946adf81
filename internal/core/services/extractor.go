package services

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// maxSignatureLength caps the stored declaration line.
const maxSignatureLength = 200

// symbolNamespace seeds deterministic symbol ids.
var symbolNamespace = uuid.MustParse("6f1c2a7e-3b8d-5e44-9a1f-0c7d2e9b4a61")

// symbolRule matches one declaration form on a single line.
// The first capture group is the symbol name.
type symbolRule struct {
	kind    domain.SymbolKind
	pattern *regexp.Regexp

	// indented rules only fire on lines with leading whitespace.
	indented bool

	// typed rules match "Type name(" and must not fire on statements such
	// as "return call(x);".
	typed bool
}

func rule(kind domain.SymbolKind, pattern string) symbolRule {
	return symbolRule{kind: kind, pattern: regexp.MustCompile(pattern)}
}

func indentedRule(kind domain.SymbolKind, pattern string) symbolRule {
	return symbolRule{kind: kind, pattern: regexp.MustCompile(pattern), indented: true}
}

func typedRule(kind domain.SymbolKind, pattern string) symbolRule {
	return symbolRule{kind: kind, pattern: regexp.MustCompile(pattern), typed: true}
}

const (
	// javaType is a possibly qualified type with optional generic arguments,
	// which may contain spaces, and array brackets.
	javaType = `[\w.]+(?:<[^;(){}=]*>)?(?:\[\])*`

	// csharpType adds nullable markers and multi-dimensional arrays.
	csharpType = `[\w.]+(?:<[^;(){}=]*>)?\??(?:\[[,\s]*\])*\??`
)

var (
	goRules = []symbolRule{
		rule(domain.SymbolMethod, `^func\s+\([^)]*\)\s*([A-Za-z_]\w*)\s*[\[(]`),
		rule(domain.SymbolFunction, `^func\s+([A-Za-z_]\w*)\s*[\[(]`),
		rule(domain.SymbolInterface, `^type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+interface\b`),
		rule(domain.SymbolClass, `^type\s+([A-Za-z_]\w*)\b`),
		rule(domain.SymbolVariable, `^(?:var|const)\s+([A-Za-z_]\w*)\b`),
	}

	scriptRules = []symbolRule{
		rule(domain.SymbolClass, `^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`),
		rule(domain.SymbolInterface, `^\s*(?:export\s+)?(?:declare\s+)?interface\s+([A-Za-z_$][\w$]*)`),
		rule(domain.SymbolEnum, `^\s*(?:export\s+)?(?:declare\s+)?(?:const\s+)?enum\s+([A-Za-z_$][\w$]*)`),
		rule(domain.SymbolFunction,
			`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*[<(]`),
		rule(domain.SymbolFunction,
			`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?`+
				`(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*(?::[^=]+)?=>`),
		rule(domain.SymbolVariable, `^(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)`),
		indentedRule(domain.SymbolMethod,
			`^\s+(?:(?:public|private|protected|static|async|readonly|override|get|set)\s+)*`+
				`([A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\([^)]*\)\s*(?::\s*[^{]+)?\{`),
	}

	pythonRules = []symbolRule{
		rule(domain.SymbolClass, `^\s*class\s+([A-Za-z_]\w*)`),
		indentedRule(domain.SymbolMethod, `^\s+(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`),
		rule(domain.SymbolFunction, `^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`),
		rule(domain.SymbolVariable, `^([A-Za-z_]\w*)\s*(?::\s*[^=]+)?=[^=]`),
	}

	javaRules = []symbolRule{
		rule(domain.SymbolInterface, `^\s*(?:(?:public|protected|private|static|abstract|sealed)\s+)*@?interface\s+(\w+)`),
		rule(domain.SymbolEnum, `^\s*(?:(?:public|protected|private|static)\s+)*enum\s+(\w+)`),
		rule(domain.SymbolClass,
			`^\s*(?:(?:public|protected|private|static|abstract|final|sealed|non-sealed)\s+)*(?:class|record)\s+(\w+)`),
		rule(domain.SymbolVariable,
			`^\s*(?:(?:public|protected|private|static|final|volatile|transient)\s+)+`+javaType+`\s+(\w+)\s*(?:=|;)`),
		typedRule(domain.SymbolMethod,
			`^\s*(?:(?:public|protected|private|static|final|abstract|synchronized|native|default|strictfp)\s+)*`+
				`(?:<[^>]+>\s+)?`+javaType+`\s+(\w+)\s*\(`),
	}

	csharpRules = []symbolRule{
		rule(domain.SymbolInterface,
			`^\s*(?:(?:public|protected|private|internal|partial)\s+)*interface\s+(\w+)`),
		rule(domain.SymbolEnum, `^\s*(?:(?:public|protected|private|internal)\s+)*enum\s+(\w+)`),
		rule(domain.SymbolClass,
			`^\s*(?:(?:public|protected|private|internal|static|abstract|sealed|partial|readonly)\s+)*`+
				`(?:class|struct|record)\s+(\w+)`),
		rule(domain.SymbolVariable,
			`^\s*(?:(?:public|protected|private|internal|static|readonly|const|volatile)\s+)+`+
				csharpType+`\s+(\w+)\s*(?:=|;|\{)`),
		typedRule(domain.SymbolMethod,
			`^\s*(?:(?:public|protected|private|internal|static|virtual|override|async|abstract|sealed|extern|unsafe|partial)\s+)*`+
				csharpType+`\s+(\w+)\s*(?:<[^>]+>)?\s*\(`),
	}

	kotlinRules = []symbolRule{
		rule(domain.SymbolEnum, `^\s*(?:(?:public|private|internal|protected)\s+)*enum\s+class\s+(\w+)`),
		rule(domain.SymbolInterface,
			`^\s*(?:(?:public|private|internal|protected|sealed|fun)\s+)*interface\s+(\w+)`),
		rule(domain.SymbolClass,
			`^\s*(?:(?:public|private|internal|protected|open|abstract|data|sealed|inner|value|annotation)\s+)*`+
				`(?:class|object)\s+(\w+)`),
		indentedRule(domain.SymbolMethod,
			`^\s+(?:(?:public|private|internal|protected|open|override|suspend|inline|operator|abstract)\s+)*`+
				`fun\s+(?:<[^>]+>\s+)?(?:[\w.]+\.)?(\w+)\s*\(`),
		rule(domain.SymbolFunction,
			`^(?:(?:public|private|internal|suspend|inline|operator)\s+)*fun\s+(?:<[^>]+>\s+)?(?:[\w.]+\.)?(\w+)\s*\(`),
		rule(domain.SymbolVariable, `^(?:(?:public|private|internal|const)\s+)*(?:val|var)\s+(\w+)`),
	}

	rustRules = []symbolRule{
		rule(domain.SymbolClass, `^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|union|type)\s+(\w+)`),
		rule(domain.SymbolEnum, `^\s*(?:pub(?:\([^)]*\))?\s+)?enum\s+(\w+)`),
		rule(domain.SymbolInterface, `^\s*(?:pub(?:\([^)]*\))?\s+)?(?:unsafe\s+)?trait\s+(\w+)`),
		indentedRule(domain.SymbolMethod,
			`^\s+(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+(\w+)`),
		rule(domain.SymbolFunction,
			`^(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+(\w+)`),
		rule(domain.SymbolVariable, `^(?:pub(?:\([^)]*\))?\s+)?(?:const|static)\s+(?:mut\s+)?(\w+)`),
	}
)

// rulesByLanguage maps language ids to extraction rules.
var rulesByLanguage = map[string][]symbolRule{
	"go":         goRules,
	"typescript": scriptRules,
	"javascript": scriptRules,
	"python":     pythonRules,
	"java":       javaRules,
	"csharp":     csharpRules,
	"kotlin":     kotlinRules,
	"rust":       rustRules,
}

// languageByExtension is the fallback detector.
var languageByExtension = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".pyi":  "python",
	".java": "java",
	".cs":   "csharp",
	".kt":   "kotlin",
	".kts":  "kotlin",
	".rs":   "rust",
}

// notNames are control-flow keywords the method rules could otherwise pick up.
var notNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "return": true,
	"function": true, "new": true, "else": true, "do": true, "try": true, "with": true,
}

// statementKeywords open lines that call rather than declare.
var statementKeywords = map[string]bool{
	"return": true, "throw": true, "new": true, "else": true, "case": true,
	"yield": true, "await": true, "goto": true, "assert": true, "when": true,
}

// LanguageForPath returns the language id for a file extension, or "".
func LanguageForPath(path string) string {
	return languageByExtension[strings.ToLower(filepath.Ext(path))]
}

// SupportsLanguage reports whether symbols can be extracted for the language.
func SupportsLanguage(language string) bool {
	_, ok := rulesByLanguage[language]
	return ok
}

// ExtractSymbols returns the declarations found in content, ordered by line.
// Extraction is line oriented: each symbol spans exactly one line, and the
// first matching rule on a line wins. Unknown languages yield no symbols.
func ExtractSymbols(path, language, content string) []domain.Symbol {
	rules, ok := rulesByLanguage[language]
	if !ok || content == "" {
		return nil
	}

	var symbols []domain.Symbol
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		indented := len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
		statement := statementKeywords[firstWord(trimmed)]

		for _, r := range rules {
			if (r.indented && !indented) || (r.typed && statement) {
				continue
			}
			m := r.pattern.FindStringSubmatch(line)
			if len(m) < 2 || m[1] == "" || notNames[m[1]] {
				continue
			}
			lineNo := i + 1
			symbols = append(symbols, domain.Symbol{
				ID:        SymbolID(path, m[1], lineNo),
				Name:      m[1],
				Kind:      r.kind,
				FilePath:  path,
				StartLine: lineNo,
				EndLine:   lineNo,
				Signature: signature(trimmed),
				Language:  language,
			})
			break
		}
	}
	return symbols
}

// SymbolID derives a stable id from the symbol's location.
func SymbolID(path, name string, line int) string {
	return uuid.NewSHA1(symbolNamespace, []byte(path+"\x00"+name+"\x00"+strconv.Itoa(line))).String()
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

func firstWord(trimmed string) string {
	if i := strings.IndexFunc(trimmed, func(r rune) bool {
		return r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z')
	}); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// signature trims the declaration line to at most maxSignatureLength bytes
// without splitting a multi-byte character.
func signature(trimmed string) string {
	trimmed = strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(trimmed, "{")), ":")
	if len(trimmed) <= maxSignatureLength {
		return trimmed
	}
	cut := maxSignatureLength
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut]
}
