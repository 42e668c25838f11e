package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/monadicstack/livepost/posts"
)

// ListRequest contains the inputs from our "livepost list" CLI command.
type ListRequest struct {
	configOption
}

// List prints every stored post straight from the configured store.
type List struct {
	Out io.Writer
}

// Command creates the Cobra struct describing this CLI command and its options.
func (c List) Command() *cobra.Command {
	request := &ListRequest{}
	cmd := &cobra.Command{
		Use:   "list [flags]",
		Short: "Prints every post in the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Out == nil {
				c.Out = cmd.OutOrStdout()
			}
			return c.Exec(cmd.Context(), request)
		},
	}
	request.bind(cmd)
	return cmd
}

// Exec reads the posts (ordered by id) and writes them as a table.
func (c List) Exec(ctx context.Context, request *ListRequest) error {
	cfg, err := request.load()
	if err != nil {
		return err
	}

	store, err := posts.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.List(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, renderTable(results))
	return err
}

func renderTable(results []posts.Post) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("No.", "Title", "Body").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, post := range results {
		t.Row(strconv.FormatInt(post.ID, 10), post.Title, post.Body)
	}
	return t.String()
}
