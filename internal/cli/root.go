// Package cli implements the memeforge command-line interface.
//
// This package provides commands for rendering memes from drafts or
// templates, editing them interactively in the terminal, serving the HTTP
// API, and working with a server's meme feed. The CLI is built using cobra
// and logs via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - serve: Run the HTTP API
//   - render: Render a draft or a quick two-caption meme to an image file
//   - edit: Terminal editor with mouse drag, resize and rotate
//   - templates: List the bundled templates
//   - publish, feed, upvote, delete: Work with a server's feed
//   - login, logout, whoami: Manage the stored server session
//   - cache: Manage the local image and render cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
//
// # Example
//
//	import "github.com/matzehuels/memeforge/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs it with ctx, reading arguments
// from os.Args.
func Execute(ctx context.Context) error {
	return ExecuteArgs(ctx, os.Args[1:])
}

// ExecuteArgs runs the command tree with explicit arguments.
func ExecuteArgs(ctx context.Context, args []string) error {
	var verbose bool

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		if loadConfig != nil {
			return loadConfig(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
