package grammar

import (
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// enryAliases maps enry language names that do not lower-case to a forest
// grammar name.
var enryAliases = map[string]string{
	"C#":              "c_sharp",
	"C++":             "cpp",
	"Shell":           "bash",
	"Emacs Lisp":      "elisp",
	"Common Lisp":     "commonlisp",
	"Protocol Buffer": "proto",
	"Objective-C":     "objc",
}

// Detect guesses the grammar for a file from its name and, when the name is
// ambiguous, its content. It returns "" when no available grammar matches.
func Detect(filename string, content []byte) string {
	lang := enry.GetLanguage(filepath.Base(filename), content)
	if lang == "" {
		return ""
	}

	name := GrammarName(lang)
	if Language(name) == nil {
		return ""
	}

	return name
}

// GrammarName converts an enry language name to a grammar name.
func GrammarName(language string) string {
	if alias, ok := enryAliases[language]; ok {
		return alias
	}

	return strings.ReplaceAll(strings.ToLower(language), " ", "_")
}
