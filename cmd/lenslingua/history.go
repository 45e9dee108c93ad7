package main

import (
	"github.com/spf13/cobra"

	"lenslingua/internal/app"
)

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage saved translations",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved translations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := c.login(cmd.Context())
			if err != nil {
				return err
			}
			records := c.app.History.ListForUser(cmd.Context(), email)
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), records)
			}
			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := c.login(cmd.Context())
			if err != nil {
				return err
			}
			rec, ok := c.app.History.Get(cmd.Context(), email, args[0])
			if !ok {
				return app.Failure{Kind: "not_found", Message: "No such record: " + args[0]}
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one saved translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := c.login(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.app.History.DeleteOne(cmd.Context(), email, args[0]); err != nil {
				return err
			}
			return c.done(cmd, "🗑 Deleted "+args[0])
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved translations of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := c.login(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.app.History.ClearForUser(cmd.Context(), email); err != nil {
				return err
			}
			return c.done(cmd, "🧹 History cleared")
		},
	}

	cmd.AddCommand(list, show, del, clearCmd)
	return cmd
}

func (c *cli) done(cmd *cobra.Command, msg string) error {
	if c.jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]bool{"ok": true})
	}
	okColor.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
