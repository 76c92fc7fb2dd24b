// Package ingest turns source files and external tree documents into
// tree.Context values: tree-sitter parsing with per-language kind tables,
// enry language detection and schema-validated JSON import.
package ingest

import (
	"path"
	"strings"
	"sync"

	forest "github.com/alexaandru/go-sitter-forest"
	golang "github.com/alexaandru/go-sitter-forest/go"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"
)

// grammarAliases maps enry language names to forest grammar names where the
// lowercase form differs.
//
//nolint:gochecknoglobals // Immutable lookup table.
var grammarAliases = map[string]string{
	"c#":          "c_sharp",
	"c++":         "cpp",
	"shell":       "bash",
	"objective-c": "objc",
	"emacs lisp":  "elisp",
}

// builtinGrammars are linked directly instead of through the forest registry.
//
//nolint:gochecknoglobals // Immutable lookup table.
var builtinGrammars = map[string]func() *sitter.Language{
	"go": func() *sitter.Language { return sitter.NewLanguage(golang.GetLanguage()) },
}

var grammarCache sync.Map //nolint:gochecknoglobals // Process-wide grammar cache.

// DetectLanguage returns the grammar name for filename, using content to
// disambiguate when given. Empty means unknown.
func DetectLanguage(filename string, content []byte) string {
	lang := enry.GetLanguage(path.Base(filename), content)
	if lang == "" {
		return ""
	}

	name := strings.ToLower(lang)
	if alias, ok := grammarAliases[name]; ok {
		return alias
	}

	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

// IsVendor reports whether path is vendored or generated third-party code.
func IsVendor(filePath string) bool {
	return enry.IsVendor(filePath)
}

// Supported reports whether filename resolves to an available grammar.
func Supported(filename string) bool {
	lang := DetectLanguage(filename, nil)

	return lang != "" && grammar(lang) != nil
}

// grammar returns the tree-sitter language for name, or nil when no grammar
// is available. Grammar loaders may panic on unknown names; that is treated
// as unavailable.
func grammar(name string) *sitter.Language {
	if cached, ok := grammarCache.Load(name); ok {
		if lang, castOK := cached.(*sitter.Language); castOK {
			return lang
		}
	}

	var lang *sitter.Language

	func() {
		defer func() {
			_ = recover() //nolint:errcheck // recover() returns any, not error
		}()

		if load, ok := builtinGrammars[name]; ok {
			lang = load()

			return
		}

		lang = forest.GetLanguage(name)
	}()

	if lang != nil {
		grammarCache.Store(name, lang)
	}

	return lang
}
