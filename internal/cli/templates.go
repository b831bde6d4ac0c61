package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/templates"
)

// templatesCommand creates the templates command.
func (c *CLI) templatesCommand() *cobra.Command {
	var asJSON, remote bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the meme templates",
		Long: `List the built-in meme templates. Use a name with --template or as a
template:<name> source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := templates.All()
			if remote {
				var err error
				if list, err = c.client(cmd.Context()).Templates(cmd.Context()); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				printInfo("No templates")
				return nil
			}
			fmt.Println(templateTable(list))
			printNextStep("Make one", appName+` render --template "`+list[0].Name+`" --top "..." --bottom "..."`)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&remote, "remote", false, "list the configured server's templates")

	return cmd
}

func templateTable(list []templates.Template) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(list))
	for i, t := range list {
		rows[i] = []string{t.Name, t.URL}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Template", "Image").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleHighlight
			}
			return StyleDim
		}).
		Render()
}
