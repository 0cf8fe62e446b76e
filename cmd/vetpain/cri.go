package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/service"
)

func newCRICommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cri",
		Short: "Plan a constant rate infusion",
	}

	cmd.AddCommand(newCRIMethodCommand(a, domain.DeliveryBag))
	cmd.AddCommand(newCRIMethodCommand(a, domain.DeliverySyringe))
	return cmd
}

func newCRIMethodCommand(a *app, method domain.DeliveryMethod) *cobra.Command {
	var (
		input   domain.CRIInput
		species string
	)

	cmd := &cobra.Command{
		Use:   string(method),
		Short: fmt.Sprintf("Prepare the infusion in a %s", method),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(); err != nil {
				return err
			}

			input.Method = method
			input.Species = domain.Species(species)
			result, err := service.NewCRICalculator(a.logger, a.catalog).Calculate(service.ApplyCRIDefaults(a.catalog, input))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return printJSON(out, result)
			}
			fmt.Fprintf(out, "%s CRI (%s), %.2f mg/h\n", result.DrugName, result.Method, result.DoseMgPerHour)
			for _, line := range result.Instructions {
				fmt.Fprintln(out, line)
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}
			for _, n := range result.Notes {
				fmt.Fprintf(out, "Note: %s\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input.DrugID, "drug", "", "CRI drug id (calculator default when empty)")
	cmd.Flags().StringVar(&species, "species", "", "dog or cat")
	cmd.Flags().Float64Var(&input.WeightKg, "weight", 0, "body weight in kg")
	if method == domain.DeliveryBag {
		cmd.Flags().Float64Var(&input.FluidRateMlH, "fluid-rate", 0, "fluid rate in ml/h")
		cmd.Flags().Float64Var(&input.BagVolumeMl, "bag-volume", 0, "bag volume in ml")
		_ = cmd.MarkFlagRequired("fluid-rate")
	} else {
		cmd.Flags().Float64Var(&input.SyringeVolumeMl, "syringe-volume", 0, "syringe volume in ml")
		cmd.Flags().Float64Var(&input.DesiredConcentrationMgMl, "concentration", 0, "desired syringe concentration in mg/ml (drug default when 0)")
	}
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}
