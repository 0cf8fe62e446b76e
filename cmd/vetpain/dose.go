package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/service"
)

func newDoseCommand(a *app) *cobra.Command {
	var (
		req           domain.DoseRequest
		species       string
		ageGroup      string
		comorbidities []string
	)

	cmd := &cobra.Command{
		Use:     "dose",
		Short:   "Calculate an analgesic dose for a presentation",
		Example: `  vetpain dose --species dog --weight 10 --drug carprofen_dog --presentation carpro_50 --age senior`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(); err != nil {
				return err
			}

			req.Species = domain.Species(species)
			req.AgeGroup = domain.AgeGroup(ageGroup)
			req.Comorbidities = req.Comorbidities[:0]
			for _, c := range comorbidities {
				req.Comorbidities = append(req.Comorbidities, domain.Comorbidity(c))
			}

			result, err := service.NewDoseCalculator(a.logger, a.catalog).Calculate(req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return printJSON(out, result)
			}
			fmt.Fprintf(out, "%s, %s\n", result.DrugName, result.PresentationName)
			fmt.Fprintf(out, "Dose: %g %s for %g kg\n", result.Dose, result.DoseUnit, result.WeightKg)
			fmt.Fprintf(out, "Total dose: %s mg\n", result.TotalMgDisplay)
			fmt.Fprintf(out, "Administer: %s %s\n", result.FinalAmountDisplay, result.FinalUnit)
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}
			for _, note := range result.AdjustmentNotes {
				fmt.Fprintf(out, "%s: %s\n", note.Title, note.Text)
			}
			if result.AdministrationNotes != "" {
				fmt.Fprintf(out, "Notes: %s\n", result.AdministrationNotes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "dog or cat")
	cmd.Flags().Float64Var(&req.WeightKg, "weight", 0, "body weight in kg")
	cmd.Flags().StringVar(&req.DrugID, "drug", "", "drug id")
	cmd.Flags().StringVar(&req.PresentationID, "presentation", "", "presentation id")
	cmd.Flags().Float64Var(&req.Dose, "dose", 0, "dose per kg (drug default when 0)")
	cmd.Flags().StringVar(&ageGroup, "age", "", "adult, senior, puppy_kitten or pregnant_lactating")
	cmd.Flags().StringSliceVar(&comorbidities, "comorbidity", nil, "liver, kidney, heart or gastro (repeatable)")
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("drug")
	_ = cmd.MarkFlagRequired("presentation")
	return cmd
}
