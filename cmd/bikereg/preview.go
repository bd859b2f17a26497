package main

import (
	"fmt"
	"strings"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/spf13/cobra"
)

func previewEmailCmd() *cobra.Command {
	names := make([]string, len(email.Templates))
	for i, t := range email.Templates {
		names[i] = string(t)
	}

	return &cobra.Command{
		Use:       "preview-email [template]",
		Short:     "Render an email template with sample data",
		Long:      "Render an email template with sample data and print the HTML.\n\nTemplates: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := email.Template(args[0])
			data, ok := email.PreviewData[name]
			if !ok {
				return fmt.Errorf("unknown template %q", args[0])
			}

			html, err := email.Render(name, data)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
			return err
		},
	}
}
