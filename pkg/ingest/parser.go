package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Sentinel errors for parsing.
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoRootNode          = errors.New("parser returned no root node")
	ErrBinaryContent       = errors.New("binary content")
	errPoolType            = errors.New("parser pool returned unexpected type")
)

// operatorField is the tree-sitter field holding the operator token of
// binary, unary and assignment expressions in the supported grammars.
const operatorField = "operator"

// Parser parses source files with tree-sitter. It is safe for concurrent use;
// native parsers are pooled per grammar.
type Parser struct {
	pools sync.Map
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse detects the language of filename and parses content. Binary
// content is rejected.
func (p *Parser) Parse(ctx context.Context, filename string, content []byte) (*tree.Context, error) {
	if enry.IsBinary(content) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryContent, filename)
	}

	lang := DetectLanguage(filename, content)
	if lang == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filename)
	}

	return p.ParseLanguage(ctx, lang, content)
}

// ParseLanguage parses content with the named grammar. Leaves keep their
// source text as label; operator expressions are labelled with the operator.
func (p *Parser) ParseLanguage(ctx context.Context, lang string, content []byte) (*tree.Context, error) {
	pool, err := p.pool(lang)
	if err != nil {
		return nil, err
	}

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer pool.Put(tsParser)

	parsed, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	defer parsed.Close()

	root := parsed.RootNode()
	if root.IsNull() {
		return nil, ErrNoRootNode
	}

	conv := &converter{
		treeCtx: tree.NewContext(),
		kinds:   kindTables[lang],
		source:  content,
	}

	rootID, err := conv.convert(root, "")
	if err != nil {
		return nil, err
	}

	if err := conv.treeCtx.SetRoot(rootID); err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}

	return conv.treeCtx, nil
}

func (p *Parser) pool(lang string) (*sync.Pool, error) {
	if cached, ok := p.pools.Load(lang); ok {
		if pool, castOK := cached.(*sync.Pool); castOK {
			return pool, nil
		}
	}

	sitterLang := grammar(lang)
	if sitterLang == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	pool := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(sitterLang)

			return tsParser
		},
	}

	actual, _ := p.pools.LoadOrStore(lang, pool)

	stored, ok := actual.(*sync.Pool)
	if !ok {
		return nil, errPoolType
	}

	return stored, nil
}

type converter struct {
	treeCtx *tree.Context
	kinds   kindTable
	source  []byte
}

func (c *converter) convert(tsNode sitter.Node, parentType string) (tree.NodeID, error) {
	nodeType := tsNode.Type()
	start, end := int(tsNode.StartByte()), int(tsNode.EndByte())

	id := c.addNode(nodeType, parentType, c.label(tsNode), start, end)

	receiverField, wrapsReceiver := receiverFields[nodeType]

	var receiver sitter.Node
	if wrapsReceiver {
		receiver = tsNode.ChildByFieldName(receiverField)
	}

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)

		childID, err := c.convert(child, nodeType)
		if err != nil {
			return tree.NoNode, err
		}

		if wrapsReceiver && sameNode(child, receiver) {
			childID, err = c.wrap(tree.KindMethodInvocationReceiver, childID)
			if err != nil {
				return tree.NoNode, err
			}
		}

		if err := c.treeCtx.AddChild(id, childID); err != nil {
			return tree.NoNode, fmt.Errorf("attach %s: %w", child.Type(), err)
		}
	}

	return id, nil
}

func (c *converter) addNode(nodeType, parentType, label string, start, end int) tree.NodeID {
	if kind, ok := contextualKind(nodeType, parentType); ok {
		return c.treeCtx.AddNode(kind, label, start, end)
	}

	if kind, ok := c.kinds[nodeType]; ok {
		return c.treeCtx.AddNode(kind, label, start, end)
	}

	return c.treeCtx.AddOtherNode(nodeType, label, start, end)
}

// wrap inserts a synthetic node of kind with the range of child above it.
func (c *converter) wrap(kind tree.Kind, child tree.NodeID) (tree.NodeID, error) {
	start, end := c.treeCtx.Range(child)
	wrapper := c.treeCtx.AddNode(kind, "", start, end)

	if err := c.treeCtx.AddChild(wrapper, child); err != nil {
		return tree.NoNode, fmt.Errorf("wrap %s: %w", kind, err)
	}

	return wrapper, nil
}

func (c *converter) label(tsNode sitter.Node) string {
	if operator := tsNode.ChildByFieldName(operatorField); !operator.IsNull() {
		return c.text(operator)
	}

	if tsNode.NamedChildCount() == 0 {
		return c.text(tsNode)
	}

	return ""
}

func (c *converter) text(tsNode sitter.Node) string {
	start, end := int(tsNode.StartByte()), int(tsNode.EndByte())
	if start < 0 || end > len(c.source) || start > end {
		return ""
	}

	return string(c.source[start:end])
}

func sameNode(left, right sitter.Node) bool {
	if left.IsNull() || right.IsNull() {
		return false
	}

	return left.StartByte() == right.StartByte() && left.EndByte() == right.EndByte() && left.Type() == right.Type()
}
