// Package markdown converts markdown documents to the plain text that is
// chunked and embedded.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Document is the plain text rendering of a markdown source.
type Document struct {
	Title string // First heading, empty when the document has none
	Text  string // Plain text with one block per line
}

// Converter renders markdown into plain text using the goldmark AST.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a converter with a goldmark parser.
func NewConverter() *Converter {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Converter{md: md}
}

// Convert parses source once and returns both its title and plain text.
func (c *Converter) Convert(source []byte) (*Document, error) {
	source = stripFrontMatter(source)
	doc := c.md.Parser().Parse(text.NewReader(source))

	title, err := firstHeading(doc, source)
	if err != nil {
		return nil, err
	}

	return &Document{
		Title: title,
		Text:  plainText(doc, source),
	}, nil
}

// ToPlainText returns the text content of source. Markup, raw HTML and
// front matter are dropped; code blocks are kept verbatim.
func (c *Converter) ToPlainText(source []byte) string {
	source = stripFrontMatter(source)
	doc := c.md.Parser().Parse(text.NewReader(source))
	return plainText(doc, source)
}

// Title returns the first heading of source, or "" when there is none.
func (c *Converter) Title(source []byte) (string, error) {
	source = stripFrontMatter(source)
	doc := c.md.Parser().Parse(text.NewReader(source))
	return firstHeading(doc, source)
}

func firstHeading(doc ast.Node, source []byte) (string, error) {
	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true),
	)
	if err != nil {
		return "", fmt.Errorf("inspect TOC: %w", err)
	}
	if len(tree.Items) == 0 {
		return "", nil
	}
	return string(tree.Items[0].Title), nil
}

func plainText(doc ast.Node, source []byte) string {
	var buf bytes.Buffer

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(source))
				}
				endLine(&buf)
			}
			return ast.WalkSkipChildren, nil

		case *ast.AutoLink:
			if entering {
				buf.Write(node.URL(source))
			}
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}

		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		}

		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			endLine(&buf)
		}
		return ast.WalkContinue, nil
	})

	return string(bytes.TrimSpace(buf.Bytes()))
}

func endLine(buf *bytes.Buffer) {
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
}

var frontMatterFence = []byte("---")

// stripFrontMatter drops a leading YAML front matter block.
func stripFrontMatter(source []byte) []byte {
	if !bytes.HasPrefix(source, frontMatterFence) {
		return source
	}
	rest := source[len(frontMatterFence):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return source
	}
	rest = rest[nl+1:]

	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		if end >= 0 {
			line = rest[off : off+end]
		}
		if bytes.Equal(bytes.TrimSpace(line), frontMatterFence) {
			if end < 0 {
				return nil
			}
			return rest[off+end+1:]
		}
		if end < 0 {
			break
		}
		off += end + 1
	}
	return source
}
