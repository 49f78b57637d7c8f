// Package cli is the line-based terminal front end of the chat client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mcpchat/internal/adapter/cli/theme"
	"mcpchat/internal/adapter/cli/uxerror"
)

// QuitCommand ends the session; it is matched case-insensitively.
const QuitCommand = "quit"

// Asker answers one query at a time.
type Asker interface {
	Query(ctx context.Context, query string) (string, error)
}

// REPL reads queries line by line and prints the answers.
type REPL struct {
	in       io.Reader
	out      io.Writer
	asker    Asker
	renderer *Renderer
	logger   *slog.Logger
}

// NewREPL creates a REPL reading from in and writing to out.
func NewREPL(in io.Reader, out io.Writer, asker Asker, renderer *Renderer, logger *slog.Logger) *REPL {
	return &REPL{in: in, out: out, asker: asker, renderer: renderer, logger: logger}
}

// Run loops until the user types quit, input ends or ctx is cancelled.
// Query failures are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, theme.Banner.Render("MCP Client Started!")+" Type 'quit' to exit.")

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(r.out, "\n"+theme.Prompt.Render("Query:")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, QuitCommand) {
			return nil
		}
		if query == "" {
			continue
		}

		answer, err := r.asker.Query(ctx, query)
		if err != nil {
			r.logger.Debug("query failed", "error", err)
			fmt.Fprintln(r.out, "\n"+uxerror.Humanize(err).Render())
			continue
		}
		fmt.Fprintln(r.out, "\n"+r.renderer.Render(answer))
	}
}

// ToolsBanner describes the connected server's catalog.
func ToolsBanner(names []string) string {
	if len(names) == 0 {
		return theme.TextWarning.Render(theme.SymbolWarning+" Connected to server with no tools.")
	}
	return theme.TextSuccess.Render(theme.SymbolSuccess+" Connected to server with tools:") + " " + strings.Join(names, ", ")
}
