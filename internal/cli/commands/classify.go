package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatlog/pkg/classifier"
	"github.com/ccollicutt/chatlog/pkg/transcript"
)

// ClassifyOptions holds command-line options for the classify command.
type ClassifyOptions struct {
	EntriesOnly bool
	Width       int
}

// lineRole is the classification of one physical line.
type lineRole struct {
	Num    int
	Role   classifier.Role
	Author string
	System bool
	Text   string
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	opts := &ClassifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify <transcript>",
		Short: "Show how each line of a transcript is classified",
		Long: `Print the role of every line in a transcript.

Lines that open a new timestamped entry are marked "entry" together with
the author found in them, or "*" for system notices. All other lines are
"continuation" lines and are joined onto the entry above them when parsing.

Use this to check why a message was split or merged unexpectedly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(Context(cmd), args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.EntriesOnly, "entries", false, "Show entry lines only")
	cmd.Flags().IntVar(&opts.Width, "width", 100, "Truncate line text to this many columns (0 for no limit)")

	return cmd
}

func runClassify(ctx context.Context, path string, opts *ClassifyOptions, w io.Writer) error {
	f, err := os.Open(path) // #nosec G304 -- user-provided transcript path
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	roles, err := classifyLines(ctx, f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	printClassification(w, roles, opts)
	return nil
}

// classifyLines classifies every line of r the way the reconstructor sees it.
func classifyLines(ctx context.Context, r io.Reader) ([]lineRole, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), transcript.MaxLineSize)

	var roles []lineRole
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := scanner.Text()
		if len(roles) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)

		lr := lineRole{Num: len(roles) + 1, Role: classifier.Classify(line), Text: line}
		if lr.Role == classifier.RoleEntry {
			entry, err := transcript.ParseEntry(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lr.Num, err)
			}
			author, _, ok := transcript.SplitAuthor(entry.Remainder)
			lr.Author = author
			lr.System = !ok
		}
		roles = append(roles, lr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func printClassification(w io.Writer, roles []lineRole, opts *ClassifyOptions) {
	var entries, authored int
	for _, lr := range roles {
		if lr.Role == classifier.RoleEntry {
			entries++
			if !lr.System {
				authored++
			}
		} else if opts.EntriesOnly {
			continue
		}

		author := ""
		switch {
		case lr.System:
			author = "*"
		case lr.Role == classifier.RoleEntry:
			author = runewidth.Truncate(lr.Author, 20, "…")
		}

		text := lr.Text
		if opts.Width > 0 {
			text = runewidth.Truncate(text, opts.Width, "…")
		}

		_, _ = fmt.Fprintf(w, "%6d  %-12s  %s  %s\n",
			lr.Num, lr.Role, runewidth.FillRight(author, 20), text)
	}

	_, _ = fmt.Fprintf(w, "---\n%d lines: %d entries (%d with author, %d system), %d continuations\n",
		len(roles), entries, authored, entries-authored, len(roles)-entries)
}
