package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/astdiff/pkg/mcp"
	"github.com/Sumatoshi-tech/astdiff/pkg/version"
)

func newMCPCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the diff tools over the Model Context Protocol",
		Long: `Start a Model Context Protocol server on stdio exposing the astdiff_diff
and astdiff_parse tools. Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, flags)
		},
	}
}

func runMCP(cmd *cobra.Command, flags *globalFlags) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := newApp(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, application.close(context.WithoutCancel(ctx))) }()

	differ, err := application.differ()
	if err != nil {
		return err
	}

	server := mcp.NewServer(mcp.ServerDeps{
		Logger:  application.logger,
		Tracer:  application.providers.Tracer,
		Differ:  differ,
		Parser:  application.parser,
		Version: version.Version,
	})

	return server.Run(ctx)
}
