package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/larkbridge/internal/app"
)

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "run one tool and print its JSON result; without arguments, list tools",
		ArgsUsage: "<tool> [json-arguments]",
		Action:    callAction,
	}
}

func callAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	registry := application.Tools()
	out := cmd.Root().Writer

	if cmd.Args().Len() == 0 {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, tool := range registry.List() {
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", tool.Name, tool.Description)
		}
		return tw.Flush()
	}

	args, err := toolArguments(cmd)
	if err != nil {
		return err
	}

	result, err := registry.Call(ctx, cmd.Args().First(), args)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// toolArguments takes the JSON arguments from the second positional
// argument, or from stdin when it is piped.
func toolArguments(cmd *cli.Command) (json.RawMessage, error) {
	if cmd.Args().Len() > 1 {
		return json.RawMessage(cmd.Args().Get(1)), nil
	}

	if f, ok := cmd.Root().Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil
	}

	data, err := io.ReadAll(cmd.Root().Reader)
	if err != nil {
		return nil, fmt.Errorf("reading arguments from stdin: %w", err)
	}
	return data, nil
}
