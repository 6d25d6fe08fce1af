package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/session"
	"github.com/rubiojr/turnsearch/pkg/textclean"
	"github.com/urfave/cli/v3"
)

// CompleteCommand creates the complete command
func CompleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Print autocomplete suggestions for a prefix",
		ArgsUsage: "PREFIX...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection id (defaults to the first collection)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			prefix := strings.Join(c.Args().Slice(), " ")
			if textclean.Clean(prefix) == "" {
				return nil
			}

			sess, err := openSession(ctx, c.String("config"), backend.CollectionID(c.String("collection")))
			if err != nil {
				return err
			}
			defer sess.Close()

			return printSuggestions(ctx, os.Stdout, sess, prefix)
		},
	}
}

func printSuggestions(ctx context.Context, w io.Writer, sess *session.Session, prefix string) error {
	if err := sess.Suggest(ctx, prefix); err != nil {
		return err
	}
	for _, s := range sess.Snapshot().Suggestions {
		fmt.Fprintln(w, s)
	}
	return nil
}
