package loader

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is the part of a markdown document under one H1 or H2 heading.
type Section struct {
	HeaderPath string // "# Doc Title > ## Section Name"
	Body       string // content below the heading, trimmed
}

// Text returns the section body with its header path prepended, which keeps
// the heading context attached to every chunk cut from it.
func (s Section) Text() string {
	if s.HeaderPath == "" {
		return s.Body
	}
	if s.Body == "" {
		return s.HeaderPath
	}
	return s.HeaderPath + "\n\n" + s.Body
}

// MarkdownSplitter splits markdown documents at H1 and H2 boundaries.
type MarkdownSplitter struct {
	md goldmark.Markdown
}

func NewMarkdownSplitter() *MarkdownSplitter {
	return &MarkdownSplitter{
		md: goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID())),
	}
}

type heading struct {
	node ast.Node
	path string
}

// Split returns the document's sections in order. Text before the first
// heading becomes a section with an empty header path. Sections with neither
// heading nor body are dropped.
func (s *MarkdownSplitter) Split(source []byte) ([]Section, error) {
	doc := s.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var headings []heading
	collectHeadings(doc, tree.Items, nil, &headings)

	if len(headings) == 0 {
		body := strings.TrimSpace(string(source))
		if body == "" {
			return nil, nil
		}
		return []Section{{Body: body}}, nil
	}

	var sections []Section
	if pre := strings.TrimSpace(string(source[:lineStart(source, headings[0].node)])); pre != "" {
		sections = append(sections, Section{Body: pre})
	}

	for i, h := range headings {
		from := bodyStart(source, h.node)
		to := len(source)
		if i+1 < len(headings) {
			to = lineStart(source, headings[i+1].node)
		}
		body := ""
		if from < to {
			body = strings.TrimSpace(string(source[from:to]))
		}
		sections = append(sections, Section{HeaderPath: h.path, Body: body})
	}
	return sections, nil
}

// collectHeadings flattens the TOC into document order, pairing each heading
// node with its header path.
func collectHeadings(doc ast.Node, items toc.Items, ancestors []string, out *[]heading) {
	for _, item := range items {
		path := append(append([]string(nil), ancestors...), string(item.Title))

		if node := findHeaderByID(doc, string(item.ID)); node != nil {
			*out = append(*out, heading{node: node, path: formatHeaderPath(path)})
		}
		if len(item.Items) > 0 {
			collectHeadings(doc, item.Items, path, out)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + segment
	}
	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if headingID, ok := n.AttributeString("id"); ok {
			if b, ok := headingID.([]byte); ok && string(b) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lineStart returns the offset of the first byte of the heading's line,
// including any leading '#' markers.
func lineStart(source []byte, n ast.Node) int {
	if n.Lines().Len() == 0 {
		return 0
	}
	i := n.Lines().At(0).Start
	for i > 0 && source[i-1] != '\n' {
		i--
	}
	return i
}

// bodyStart returns the offset just past the heading, skipping a setext
// underline when there is one.
func bodyStart(source []byte, n ast.Node) int {
	lines := n.Lines()
	if lines.Len() == 0 {
		return len(source)
	}
	i := nextLine(source, lines.At(lines.Len()-1).Stop)

	end := nextLine(source, i)
	if underline := strings.TrimSpace(string(source[i:end])); underline != "" &&
		(strings.Trim(underline, "=") == "" || strings.Trim(underline, "-") == "") {
		return end
	}
	return i
}

func nextLine(source []byte, i int) int {
	for i < len(source) && source[i] != '\n' {
		i++
	}
	if i < len(source) {
		i++
	}
	return i
}
