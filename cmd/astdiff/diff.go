package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
)

// diffArgCount is the number of arguments expected by the diff command.
const diffArgCount = 2

func newDiffCommand(flags *globalFlags) *cobra.Command {
	var move bool

	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Compare two files structurally",
		Long: `Compare two source files, or two JSON tree documents, and print the edit
script that turns the first syntax tree into the second.

Examples:
  astdiff diff old/main.go new/main.go
  astdiff diff -f json before.json after.json
  astdiff diff --move A.java B.java     # declaration moved between files`,
		Args: cobra.ExactArgs(diffArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, flags, args[0], args[1], move)
		},
	}

	cmd.Flags().BoolVar(&move, "move", false, "treat the files as a moved declaration (roots are always mapped)")

	return cmd
}

func runDiff(cmd *cobra.Command, flags *globalFlags, beforePath, afterPath string, move bool) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := newApp(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, application.close(context.WithoutCancel(ctx))) }()

	beforeContent, err := application.readSource(beforePath)
	if err != nil {
		return err
	}

	afterContent, err := application.readSource(afterPath)
	if err != nil {
		return err
	}

	src, err := application.loadTree(ctx, beforePath, beforeContent)
	if err != nil {
		return err
	}

	dst, err := application.loadTree(ctx, afterPath, afterContent)
	if err != nil {
		return err
	}

	differ, err := application.differ()
	if err != nil {
		return err
	}

	project := astdiff.NewProjectASTDiff(
		map[string]string{beforePath: string(beforeContent)},
		map[string]string{afterPath: string(afterContent)},
	)

	run, err := differ.Run(ctx, project, []astdiff.FilePair{{
		SrcPath: beforePath,
		DstPath: afterPath,
		Src:     src,
		Dst:     dst,
		Move:    move,
	}})
	if err != nil {
		return err
	}

	return application.finish(cmd.OutOrStdout(), project, &run)
}
