package main

import (
	"github.com/spf13/cobra"

	"lenslingua/internal/app"
	"lenslingua/internal/capture"
	"lenslingua/internal/model"
)

func (c *cli) extractCmd(use, short string, kind model.Kind) *cobra.Command {
	var lang, mimeType string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := c.login(cmd.Context())
			if err != nil {
				return err
			}
			state, err := c.app.Controller.Translate(cmd.Context(), app.Request{
				Email:          email,
				Kind:           kind,
				Source:         capture.FileSource{Path: args[0], MIMEType: mimeType},
				TargetLanguage: lang,
			})
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), state)
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "target language (defaults to DEFAULT_TARGET_LANGUAGE)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "media type, guessed from the file extension when omitted")
	return cmd
}
