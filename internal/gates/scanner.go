package gates

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"golang.org/x/sync/errgroup"

	"github.com/kaidhar/prism-cli/internal/tokens"
)

// fileViolations reports the exact offending tokens found in one generated
// file, never just a failed flag.
type fileViolations struct {
	File    string   `json:"file"`
	Colors  []string `json:"colors,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// generatedScanner checks generated source files against the allowed color
// set and the forbidden utility-class patterns.
type generatedScanner struct {
	allowed   map[string]bool
	forbidden []string
}

// discoverGenerated walks root and returns the files matching any of the
// doublestar patterns, sorted for deterministic reports.
func discoverGenerated(root string, patterns []string) ([]string, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid generated glob %q", p)
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		for _, p := range patterns {
			if m, _ := doublestar.PathMatch(p, rel); m {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// scanAll scans the files concurrently with bounded parallelism and returns
// violations sorted by file path.
func (s *generatedScanner) scanAll(ctx context.Context, files []string, concurrency int) ([]fileViolations, error) {
	if concurrency < 1 {
		concurrency = 4
	}

	var mu sync.Mutex
	var violations []fileViolations

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := s.scanFile(file)
			if err != nil {
				return fmt.Errorf("could not scan %s: %w", file, err)
			}
			if v != nil {
				mu.Lock()
				violations = append(violations, *v)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(violations, func(i, j int) bool { return violations[i].File < violations[j].File })
	return violations, nil
}

// maxScanBytes caps how much of a generated file is scanned. Bundled or
// minified output beyond this is not hand-written generated code.
const maxScanBytes = 4 << 20

func (s *generatedScanner) scanFile(path string) (*fileViolations, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxScanBytes {
		return nil, nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var literals []string
	if lang := languageFor(path); lang != nil {
		literals, err = stringLiteralColors(source, lang)
		if err != nil {
			// A file the grammar cannot parse still gets the plain scan.
			literals = tokens.FindColorLiterals(string(source))
		}
	} else {
		literals = tokens.FindColorLiterals(string(source))
	}

	v := fileViolations{File: path}
	seenColor := make(map[string]bool)
	for _, lit := range literals {
		if !s.allowed[lit] && !seenColor[lit] {
			seenColor[lit] = true
			v.Colors = append(v.Colors, lit)
		}
	}

	text := string(source)
	seenClass := make(map[string]bool)
	for _, pattern := range s.forbidden {
		if pattern == "" {
			continue
		}
		for _, class := range matchClassPattern(text, pattern) {
			if !seenClass[class] {
				seenClass[class] = true
				v.Classes = append(v.Classes, class)
			}
		}
	}
	sort.Strings(v.Colors)
	sort.Strings(v.Classes)

	if len(v.Colors) == 0 && len(v.Classes) == 0 {
		return nil, nil
	}
	return &v, nil
}

// languageFor picks a tree-sitter grammar by extension. Non-script files
// (CSS, HTML, JSON) use the plain text scan instead.
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".ts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	}
	return nil
}

// stringLiteralColors parses the source and extracts color literals only
// from string and template nodes. Walking the AST instead of scanning raw
// text keeps commented-out code from producing violations.
func stringLiteralColors(source []byte, lang *sitter.Language) ([]string, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var literals []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || n.IsNull() {
			return
		}
		switch n.Type() {
		case "string", "template_string":
			literals = append(literals, tokens.FindColorLiterals(n.Content(source))...)
			return
		case "comment":
			return
		}
		cursor := sitter.NewTreeCursor(n)
		defer cursor.Close()
		if ok := cursor.GoToFirstChild(); ok {
			for {
				walk(cursor.CurrentNode())
				if ok := cursor.GoToNextSibling(); !ok {
					break
				}
			}
		}
	}
	walk(tree.RootNode())
	return literals, nil
}

// matchClassPattern finds utility-class tokens starting with pattern, e.g.
// pattern "bg-blue-" matches "bg-blue-500" inside a class string.
func matchClassPattern(text, pattern string) []string {
	var matches []string
	for i := 0; ; {
		idx := strings.Index(text[i:], pattern)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(pattern)
		for end < len(text) && isClassChar(text[end]) {
			end++
		}
		// The match must be a whole class token, not a substring of one.
		if start == 0 || !isClassChar(text[start-1]) {
			matches = append(matches, text[start:end])
		}
		i = end
	}
	return matches
}

func isClassChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_'
}
