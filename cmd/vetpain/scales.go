package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vet-pain-mcp-server/internal/domain"
)

func newScalesCommand(a *app) *cobra.Command {
	var species, painType string

	cmd := &cobra.Command{
		Use:   "scales",
		Short: "List the pain scales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, p := domain.Species(species), domain.PainType(painType)
			if s != "" && !s.IsValid() {
				return domain.NewValidationError("species", "must be dog or cat", species)
			}
			if p != "" && !p.IsValid() {
				return domain.NewValidationError("type", "must be acute or chronic", painType)
			}
			if err := a.init(); err != nil {
				return err
			}

			scales := a.catalog.Scales(s, p)

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), scales)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Species", "Type", "Questions", "Name"})
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			table.SetTablePadding("  ")
			table.SetNoWhiteSpace(true)
			for _, scale := range scales {
				name := scale.Name
				if scale.Recommended {
					name += " (recommended)"
				}
				table.Append([]string{scale.ID, string(scale.Species), string(scale.PainType), strconv.Itoa(len(scale.Questions)), name})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "dog or cat")
	cmd.Flags().StringVar(&painType, "type", "", "acute or chronic")
	return cmd
}
