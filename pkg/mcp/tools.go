package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
	"github.com/Sumatoshi-tech/astdiff/pkg/ingest"
	"github.com/Sumatoshi-tech/astdiff/pkg/report"
)

// Tool name constants.
const (
	ToolNameDiff  = "astdiff_diff"
	ToolNameParse = "astdiff_parse"
)

// MaxCodeInputBytes is the maximum allowed size for one inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyLanguage indicates the language parameter is empty.
	ErrEmptyLanguage = errors.New("language parameter is required and must not be empty")
	// ErrCodeTooLarge indicates a code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrDiffFailed indicates the pair could not be diffed.
	ErrDiffFailed = errors.New("diff failed")
)

// DiffInput is the input schema for the astdiff_diff tool.
type DiffInput struct {
	After    string `json:"after"          jsonschema:"source code after the change"`
	Before   string `json:"before"         jsonschema:"source code before the change"`
	Language string `json:"language"       jsonschema:"grammar name (e.g. go python javascript)"`
	Move     bool   `json:"move,omitempty" jsonschema:"treat the inputs as a declaration moved between files"`
	Path     string `json:"path,omitempty" jsonschema:"file path reported in the result"`
}

// ParseInput is the input schema for the astdiff_parse tool.
type ParseInput struct {
	Code     string `json:"code"     jsonschema:"source code to parse"`
	Language string `json:"language" jsonschema:"grammar name (e.g. go python javascript)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleDiff(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input DiffInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if err := validateCodeInput(input.Language, input.Before, input.After); err != nil {
		return errorResult(err)
	}

	path := input.Path
	if path == "" {
		path = syntheticFilename(input.Language)
	}

	src, err := s.parser.ParseLanguage(ctx, input.Language, []byte(input.Before))
	if err != nil {
		return errorResult(fmt.Errorf("parse before: %w", err))
	}

	dst, err := s.parser.ParseLanguage(ctx, input.Language, []byte(input.After))
	if err != nil {
		return errorResult(fmt.Errorf("parse after: %w", err))
	}

	project := astdiff.NewProjectASTDiff(
		map[string]string{path: input.Before},
		map[string]string{path: input.After},
	)

	run, err := s.differ.Run(ctx, project, []astdiff.FilePair{{
		SrcPath: path,
		DstPath: path,
		Src:     src,
		Dst:     dst,
		Move:    input.Move,
	}})
	if err != nil {
		return errorResult(err)
	}

	if len(run.Failed) > 0 {
		return errorResult(fmt.Errorf("%w: %w", ErrDiffFailed, run.Failed[0].Err))
	}

	return jsonResult(report.FromProject(project, &run))
}

func (s *Server) handleParse(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ParseInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if err := validateCodeInput(input.Language, input.Code); err != nil {
		return errorResult(err)
	}

	treeCtx, err := s.parser.ParseLanguage(ctx, input.Language, []byte(input.Code))
	if err != nil {
		return errorResult(fmt.Errorf("parse code: %w", err))
	}

	doc := ingest.NewDocument(treeCtx)
	doc.Language = input.Language

	return jsonResult(doc)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateCodeInput(language string, codes ...string) error {
	if language == "" {
		return ErrEmptyLanguage
	}

	for _, code := range codes {
		if len(code) > MaxCodeInputBytes {
			return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
		}
	}

	return nil
}

func syntheticFilename(language string) string {
	return "code." + language
}
