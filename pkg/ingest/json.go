package ingest

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// ErrInvalidDocument is returned when a tree document fails schema validation.
var ErrInvalidDocument = errors.New("invalid tree document")

//go:embed schema.json
var documentSchema []byte

// Document is the JSON form of a tree handed in by an external parser:
//
//	{"root": {"type": "Block", "label": "", "pos": 0, "length": 4, "children": [...]}}
//
// Types matching a known kind name become that kind; others become KindOther.
type Document struct {
	Language string       `json:"language,omitempty"`
	Root     DocumentNode `json:"root"`
}

// DocumentNode is one node of a Document.
type DocumentNode struct {
	Type     string         `json:"type"`
	Label    string         `json:"label,omitempty"`
	Pos      int            `json:"pos"`
	Length   int            `json:"length"`
	Children []DocumentNode `json:"children,omitempty"`
}

// LoadJSON validates and decodes a tree document.
func LoadJSON(r io.Reader) (*tree.Context, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree document: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(messages, "; "))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode tree document: %w", err)
	}

	return doc.Build()
}

// Build materializes the document into a new context.
func (d Document) Build() (*tree.Context, error) {
	treeCtx := tree.NewContext()

	root, err := addDocumentNode(treeCtx, d.Root)
	if err != nil {
		return nil, err
	}

	if err := treeCtx.SetRoot(root); err != nil {
		return nil, fmt.Errorf("build tree document: %w", err)
	}

	return treeCtx, nil
}

func addDocumentNode(treeCtx *tree.Context, docNode DocumentNode) (tree.NodeID, error) {
	var id tree.NodeID

	if kind, ok := tree.ParseKind(docNode.Type); ok && kind != tree.KindOther {
		id = treeCtx.AddNode(kind, docNode.Label, docNode.Pos, docNode.Pos+docNode.Length)
	} else {
		id = treeCtx.AddOtherNode(docNode.Type, docNode.Label, docNode.Pos, docNode.Pos+docNode.Length)
	}

	for _, child := range docNode.Children {
		childID, err := addDocumentNode(treeCtx, child)
		if err != nil {
			return tree.NoNode, err
		}

		if err := treeCtx.AddChild(id, childID); err != nil {
			return tree.NoNode, fmt.Errorf("build tree document: %w", err)
		}
	}

	return id, nil
}

// NewDocument converts a tree back into its JSON document form.
func NewDocument(treeCtx *tree.Context) Document {
	if treeCtx.Root() == tree.NoNode {
		return Document{}
	}

	return Document{Root: documentNode(treeCtx, treeCtx.Root())}
}

func documentNode(treeCtx *tree.Context, id tree.NodeID) DocumentNode {
	start, end := treeCtx.Range(id)

	docNode := DocumentNode{
		Type:   treeCtx.TypeName(id),
		Label:  treeCtx.Label(id),
		Pos:    start,
		Length: end - start,
	}

	for _, child := range treeCtx.Children(id) {
		docNode.Children = append(docNode.Children, documentNode(treeCtx, child))
	}

	return docNode
}
