package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/til/internal/category"
)

// categoryView is the JSON shape of one category.
type categoryView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "categories",
		Short:         "List the categories facts can be filed under",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cats := category.List()

			if formatter.JSON() {
				views := make([]categoryView, 0, len(cats))
				for _, c := range cats {
					views = append(views, categoryView{Name: c.Name, Label: category.Label(c.Name), Color: c.Color})
				}
				return formatter.Success(views)
			}

			fmt.Fprintln(formatter.Writer, category.Label(category.All))
			for _, c := range cats {
				fmt.Fprintf(formatter.Writer, "%-14s %s\n", category.Label(c.Name), c.Color)
			}
			return nil
		},
	}
}
