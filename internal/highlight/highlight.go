// Package highlight renders a snippet's code into a standalone HTML document.
//
// The rendered document is a pure function of (code, language, style, linenos):
// styles are emitted inline (no CSS class names), so the same inputs always
// produce the same bytes. The repository calls Render on every write and stores
// the result, which is what GET /snippets/{id}/highlight/ serves back.
//
// WHY CHROMA?
// github.com/alecthomas/chroma is the Go port of Pygments. It ships the same
// lexer aliases ("python", "go", "js", ...) and style names ("friendly",
// "monokai", ...) that existing clients already send.
package highlight

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var (
	choicesOnce sync.Once
	languages   []string
	languageSet map[string]struct{}
	styleNames  []string
	styleSet    map[string]struct{}
)

// loadChoices builds the allowed language and style sets once.
//
// A language choice is the first alias of every registered lexer; lexers
// without an alias cannot be selected.
func loadChoices() {
	choicesOnce.Do(func() {
		languageSet = make(map[string]struct{})
		for _, l := range lexers.GlobalLexerRegistry.Lexers {
			cfg := l.Config()
			if cfg == nil || len(cfg.Aliases) == 0 {
				continue
			}
			alias := cfg.Aliases[0]
			if _, dup := languageSet[alias]; dup {
				continue
			}
			languageSet[alias] = struct{}{}
			languages = append(languages, alias)
		}
		sort.Strings(languages)

		styleSet = make(map[string]struct{})
		for _, name := range styles.Names() {
			styleSet[name] = struct{}{}
			styleNames = append(styleNames, name)
		}
		sort.Strings(styleNames)
	})
}

// Languages returns the sorted list of selectable language names.
// The returned slice is a copy.
func Languages() []string {
	loadChoices()
	return append([]string(nil), languages...)
}

// Styles returns the sorted list of selectable style names.
func Styles() []string {
	loadChoices()
	return append([]string(nil), styleNames...)
}

func IsLanguage(name string) bool {
	loadChoices()
	_, ok := languageSet[name]
	return ok
}

func IsStyle(name string) bool {
	loadChoices()
	_, ok := styleSet[name]
	return ok
}

// Render highlights code and returns a complete HTML page.
//
// Unknown languages or styles are rejected rather than silently falling back to
// plain text: the serializer has already validated both, so an error here means
// a caller skipped validation.
func Render(code, language, style string, linenos bool) (string, error) {
	if !IsLanguage(language) {
		return "", fmt.Errorf("highlight: unknown language %q", language)
	}
	if !IsStyle(style) {
		return "", fmt.Errorf("highlight: unknown style %q", style)
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		return "", fmt.Errorf("highlight: no lexer for %q", language)
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("highlight: tokenising %s: %w", language, err)
	}

	formatter := html.New(
		html.Standalone(true),
		html.WithClasses(false),
		html.WithLineNumbers(linenos),
	)

	var buf bytes.Buffer
	if err := formatter.Format(&buf, styles.Get(style), iterator); err != nil {
		return "", fmt.Errorf("highlight: formatting: %w", err)
	}
	return buf.String(), nil
}
