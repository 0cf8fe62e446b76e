package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/service"
)

// parseAnswers turns key=value arguments into answers for the scale. Free-text
// questions keep the raw value; other values that parse as numbers are numeric.
func parseAnswers(scale *domain.Scale, args []string) (domain.AnswerSet, error) {
	answers := make(domain.AnswerSet, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, domain.NewValidationError("answer", "expected question_id=value", arg)
		}
		if q, ok := scale.Question(key); ok && !q.Type.IsScored() {
			answers[key] = domain.TextAnswer(value)
			continue
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			answers[key] = domain.NumberAnswer(n)
		} else {
			answers[key] = domain.TextAnswer(value)
		}
	}
	return answers, nil
}

func newScoreCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <scale> [question_id=value ...]",
		Short: "Score a pain scale from its answers",
		Example: `  vetpain score fgs ears=1 eyes=1 muzzle=2 whiskers=1 head=0
  vetpain score cmps-sf --json glasgow_observation=0 glasgow_touch_neutral=1 glasgow_palpation=0 glasgow_demeanor=1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			scale, err := a.catalog.Scale(args[0])
			if err != nil {
				return err
			}
			answers, err := parseAnswers(scale, args[1:])
			if err != nil {
				return err
			}
			assessments, err := a.assessments()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result, missing, err := assessments.Interpret(scale.ID, answers)
			var incomplete *service.IncompleteError
			if errors.As(err, &incomplete) {
				if a.jsonOutput {
					_ = printJSON(out, map[string]interface{}{"complete": false, "missing": missing})
				} else {
					fmt.Fprintf(out, "Assessment incomplete. Missing answers: %s\n", strings.Join(missing, ", "))
				}
				return err
			}
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(out, result)
			}
			fmt.Fprintf(out, "Score: %s\n", result.Score)
			if result.Band != "" {
				fmt.Fprintf(out, "Band: %s\n", result.Band)
			}
			fmt.Fprintf(out, "Needs intervention: %t\n", result.NeedsIntervention)
			fmt.Fprintf(out, "%s\n", result.Analysis)
			return nil
		},
	}
	return cmd
}
