package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monadicstack/livepost/component"
	"github.com/monadicstack/livepost/rpc/errors"
	"github.com/monadicstack/livepost/web"
)

// CallRequest contains the inputs from our "livepost call" CLI command.
type CallRequest struct {
	// Operation is the positional argument: Render, Store, Edit, Cancel, Update or Delete.
	Operation string
	// ID is the value of --id for Edit and Delete.
	ID int64
	// Title and Body are the form buffers. Only flags you actually pass are sent.
	Title string
	Body  string
	// Addr is the base URL of the running server.
	Addr string

	titleSet bool
	bodySet  bool
}

// Call invokes a single component operation on a running server and prints the markup
// that comes back. Each invocation is a brand new session, so multi-step flows (Edit then
// Update) belong in Go code using web.PostsClient.
type Call struct {
	Out io.Writer
}

// Command creates the Cobra struct describing this CLI command and its options.
func (c Call) Command() *cobra.Command {
	request := &CallRequest{}
	cmd := &cobra.Command{
		Use:   "call [flags] OPERATION",
		Short: "Invokes a posts operation on a running server.",
		Long:  "Sends one RPC call (Render, Store, Edit, Cancel, Update or Delete) to a livepost server and prints the re-rendered component. Not-found faults print the component with its alert and exit non-zero.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Out == nil {
				c.Out = cmd.OutOrStdout()
			}
			request.Operation = args[0]
			request.titleSet = cmd.Flags().Changed("title")
			request.bodySet = cmd.Flags().Changed("body")
			return c.Exec(cmd.Context(), request)
		},
	}
	cmd.Flags().Int64Var(&request.ID, "id", 0, "Post id for Edit and Delete")
	cmd.Flags().StringVar(&request.Title, "title", "", "Title buffer to send with the call")
	cmd.Flags().StringVar(&request.Body, "body", "", "Body buffer to send with the call")
	cmd.Flags().StringVar(&request.Addr, "addr", "http://localhost:8080", "Base URL of the livepost server")
	return cmd
}

// Exec sends the call and writes the reply markup to Out.
func (c Call) Exec(ctx context.Context, request *CallRequest) error {
	client := web.NewClient(request.Addr)

	if strings.EqualFold(strings.TrimSpace(request.Operation), "render") {
		html, err := client.Render(ctx)
		return c.print(html, err)
	}

	action, err := component.ParseAction(request.Operation)
	if err != nil {
		return err
	}
	if action.TakesID() && request.ID <= 0 {
		return errors.BadRequest("%s requires --id", action)
	}

	fields := web.Fields{}
	if request.titleSet {
		fields.Title = web.Text(request.Title)
	}
	if request.bodySet {
		fields.Body = web.Text(request.Body)
	}
	html, err := client.Call(ctx, component.Command{Action: action, ID: request.ID}, fields)
	return c.print(html, err)
}

func (c Call) print(html string, err error) error {
	if html != "" {
		fmt.Fprintln(c.Out, strings.TrimSpace(html))
	}
	return err
}
