package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/example/expense-report/internal/classify"
)

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <recipient>...",
		Short: "Show the category a recipient would be sorted into",
		Long: `Show the category a recipient would be sorted into with the configured
keywords, and the keyword that decided it. Useful when tuning the config.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			classifier, err := classify.New(cfg.Rules())
			if err != nil {
				return err
			}

			nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

			out := cmd.OutOrStdout()
			for _, recipient := range args {
				e := classifier.Explain(recipient)
				switch {
				case e.Excluded:
					fmt.Fprintf(out, "%s: %s %s\n", recipient, nameStyle.Render("excluded"),
						mutedStyle.Render(fmt.Sprintf("(matched %q)", e.Pattern)))
				case e.Pattern != "":
					fmt.Fprintf(out, "%s: %s %s\n", recipient, nameStyle.Render(e.Category),
						mutedStyle.Render(fmt.Sprintf("(matched %q)", e.Pattern)))
				default:
					fmt.Fprintf(out, "%s: %s %s\n", recipient, nameStyle.Render(e.Category),
						mutedStyle.Render("(fallback)"))
				}
			}
			return nil
		},
	}
}
