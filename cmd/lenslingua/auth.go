package main

import (
	"errors"

	"github.com/spf13/cobra"

	"lenslingua/internal/model"
)

func (c *cli) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, pw, err := c.credentials()
			if err != nil {
				return err
			}
			if c.password == "" {
				confirm, err := c.readPassword("Repeat password: ")
				if err != nil {
					return err
				}
				if confirm != pw {
					return errors.New("passwords do not match")
				}
			}
			if err := c.app.Auth.Register(cmd.Context(), email, pw); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOutput {
				return printJSON(out, map[string]string{"email": model.NormalizeEmail(email)})
			}
			okColor.Fprintf(out, "✅ Registered %s\n", model.NormalizeEmail(email))
			return nil
		},
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check account credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := c.login(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOutput {
				return printJSON(out, map[string]any{"email": model.NormalizeEmail(email), "valid": true})
			}
			okColor.Fprintf(out, "✅ Credentials are valid for %s\n", model.NormalizeEmail(email))
			return nil
		},
	}
}
