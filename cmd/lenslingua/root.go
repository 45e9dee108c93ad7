package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lenslingua/internal/app"
	"lenslingua/internal/model"
)

type cli struct {
	newApp       func(ctx context.Context) (*app.App, error)
	readPassword func(prompt string) (string, error)
	app          *app.App

	jsonOutput bool
	email      string
	password   string
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "lenslingua",
		Short: "Translate menus, signs and speech from local files",
		Long: `lenslingua reads text from photos and recordings, translates it with
the configured multimodal model and keeps a per-account history.

Configuration comes from the environment (and .env), the same as the bot
and the HTTP server.`,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
	}

	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print JSON instead of text")
	root.PersistentFlags().StringVarP(&c.email, "email", "e", "", "account email")
	root.PersistentFlags().StringVarP(&c.password, "password", "p", "", "account password (prompted when omitted)")

	root.AddCommand(
		c.registerCmd(),
		c.verifyCmd(),
		c.extractCmd("scan <image>", "Read and translate a photo of a menu or sign", model.KindScan),
		c.extractCmd("listen <audio>", "Transcribe and translate a recording", model.KindAudio),
		c.historyCmd(),
		c.pruneCmd(),
		c.statsCmd(),
		c.benchCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.app != nil {
		return nil
	}
	a, err := c.newApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	c.app = a
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// credentials returns the account email and password, prompting for the
// password when --password is not set.
func (c *cli) credentials() (string, string, error) {
	if c.email == "" {
		return "", "", errors.New("--email is required")
	}
	if c.password != "" {
		return c.email, c.password, nil
	}
	pw, err := c.readPassword("Password: ")
	if err != nil {
		return "", "", err
	}
	return c.email, pw, nil
}

// login verifies the credentials and returns the account email.
func (c *cli) login(ctx context.Context) (string, error) {
	email, pw, err := c.credentials()
	if err != nil {
		return "", err
	}
	if err := c.app.Authenticate(ctx, email, pw); err != nil {
		return "", err
	}
	return email, nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
