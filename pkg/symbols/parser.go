// Package symbols builds a queryable index of the definitions in a Python
// source tree. Agents use it to answer "what is this symbol" questions with
// exact signatures instead of retrieval guesses.
package symbols

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Kind classifies a symbol definition
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
)

// Symbol is a single definition found in a source file
type Symbol struct {
	Name      string
	Qualified string
	Kind      Kind
	File      string
	StartLine int
	EndLine   int
	Signature string
	Doc       string
	Parent    string
}

// Parser extracts symbols from Python source using Tree-sitter
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Python symbol parser
func NewParser() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Parser{parser: parser}
}

// Parse extracts all class, function and method definitions from content.
// relPath labels the resulting symbols and should be repo-relative.
func (p *Parser) Parse(ctx context.Context, relPath string, content []byte) ([]Symbol, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}
	defer tree.Close()

	lines := strings.Split(string(content), "\n")

	var symbols []Symbol
	p.walk(tree.RootNode(), relPath, "", content, lines, &symbols)

	return symbols, nil
}

func (p *Parser) walk(node *sitter.Node, relPath, parent string, content []byte, lines []string, symbols *[]Symbol) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "class_definition":
			p.addClass(child, child, relPath, content, lines, symbols)

		case "function_definition":
			p.addFunction(child, child, relPath, parent, content, lines, symbols)

		case "decorated_definition":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				switch inner.Type() {
				case "function_definition":
					p.addFunction(inner, child, relPath, parent, content, lines, symbols)
				case "class_definition":
					p.addClass(inner, child, relPath, content, lines, symbols)
				}
			}

		default:
			p.walk(child, relPath, parent, content, lines, symbols)
		}
	}
}

// addClass records a class and recurses into its body for methods. outer is
// the enclosing node when the class is decorated, so the span includes the
// decorators.
func (p *Parser) addClass(node, outer *sitter.Node, relPath string, content []byte, lines []string, symbols *[]Symbol) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	startLine := int(outer.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	*symbols = append(*symbols, Symbol{
		Name:      name,
		Qualified: name,
		Kind:      KindClass,
		File:      relPath,
		StartLine: startLine,
		EndLine:   endLine,
		Signature: signatureLine(lines, int(node.StartPoint().Row)+1),
		Doc:       docstring(node, content),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		p.walk(body, relPath, name, content, lines, symbols)
	}
}

func (p *Parser) addFunction(node, outer *sitter.Node, relPath, parent string, content []byte, lines []string, symbols *[]Symbol) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	kind := KindFunction
	qualified := name
	if parent != "" {
		kind = KindMethod
		qualified = parent + "." + name
	}

	*symbols = append(*symbols, Symbol{
		Name:      name,
		Qualified: qualified,
		Kind:      kind,
		File:      relPath,
		StartLine: int(outer.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Signature: signatureLine(lines, int(node.StartPoint().Row)+1),
		Doc:       docstring(node, content),
		Parent:    parent,
	})
}

// signatureLine returns the trimmed source line a definition starts on
func signatureLine(lines []string, line int) string {
	if line > 0 && line <= len(lines) {
		return strings.TrimSpace(lines[line-1])
	}
	return ""
}

// docstring returns the leading string literal of a definition body, if any
func docstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}

	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}

	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}

	text := string(content[str.StartByte():str.EndByte()])
	text = strings.Trim(text, "\"'")
	return strings.TrimSpace(text)
}
