package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/larkbridge/internal/app"
	"github.com/florianilch/larkbridge/internal/credstore"
)

func credentialsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credentials",
		Usage: "manage the app secret",
		Commands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "store the app secret in the configured file or keyring",
				Action: credentialsSetAction,
			},
			{
				Name:   "check",
				Usage:  "exchange the stored credentials for a tenant access token",
				Action: credentialsCheckAction,
			},
		},
	}
}

func credentialsSetAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	store, err := app.SecretStore(cfg)
	if err != nil {
		return err
	}

	secret, err := readSecret(cmd.Root().Reader, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}

	if err := store.Write(ctx, secret); err != nil {
		if errors.Is(err, credstore.ErrReadOnly) {
			return fmt.Errorf("%w: choose --auth--storage file or keyring", err)
		}
		return fmt.Errorf("storing app secret: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "app secret stored in %s storage\n", cfg.Auth.Storage)
	return nil
}

func credentialsCheckAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	expiry, err := app.CheckCredentials(ctx, cfg)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "credentials valid for app %s, token expires at %s\n",
		cfg.Auth.AppID, expiry.Format(time.RFC3339))
	return nil
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "App secret: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading app secret: %w", err)
		}
		return validSecret(string(secret))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading app secret: %w", err)
	}
	return validSecret(line)
}

func validSecret(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("app secret cannot be empty")
	}
	return s, nil
}
