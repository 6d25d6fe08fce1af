package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rubiojr/turnsearch/pkg/session"
	"github.com/urfave/cli/v3"
)

// CollectionsCommand creates the collections command
func CollectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List the searchable collections",
		Action: func(ctx context.Context, c *cli.Command) error {
			sess, err := openSession(ctx, c.String("config"), "")
			if err != nil {
				return err
			}
			defer sess.Close()

			return writeCollections(os.Stdout, sess.Snapshot())
		},
	}
}

// formatCollections lists collections one per line, marking the selected
// one with an asterisk.
func formatCollections(st session.State) string {
	if len(st.Collections) == 0 {
		return metaStyle.Render("No collections available") + "\n"
	}

	var out strings.Builder
	for _, col := range st.Collections {
		mark := " "
		if col.ID == st.CurrentCollection {
			mark = defaultMarkStyle.Render("*")
		}
		fmt.Fprintf(&out, "%s %s\t%s\n", mark, col.ID, col.Name)
	}
	return out.String()
}

func writeCollections(w io.Writer, st session.State) error {
	_, err := io.WriteString(w, formatCollections(st))
	return err
}
