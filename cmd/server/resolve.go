package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/macrolens/foodrecon/internal/domain"
	"github.com/macrolens/foodrecon/internal/usecase"
)

var (
	resolveQuantity        float64
	resolveUnit            string
	resolveGramsPerServing float64
	resolveDensity         float64
	resolveHousehold       []string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Convert an amount to grams",
	Example: `  macrolens resolve --quantity 2 --unit serving --grams-per-serving 30
  macrolens resolve --quantity 1 --unit "1 can" --household "1 can=368.1"`,
	// runs offline, no configuration needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := domain.ParseServingUnit(resolveUnit)
		if !unit.Valid() {
			return eris.Wrapf(domain.ErrInvalidRequest, "unit %q", resolveUnit)
		}
		units, err := parseHouseholdFlags(resolveHousehold)
		if err != nil {
			return err
		}

		grams, ok := usecase.ResolveToGrams(
			resolveQuantity,
			unit,
			optionalFlag(cmd, "grams-per-serving", resolveGramsPerServing),
			optionalFlag(cmd, "density", resolveDensity),
			units,
		)
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintln(out, "unresolved")
			return nil
		}
		fmt.Fprintf(out, "%.2f g\n", grams)
		return nil
	},
}

// parseHouseholdFlags reads "label=grams" pairs
func parseHouseholdFlags(values []string) ([]domain.HouseholdUnit, error) {
	units := make([]domain.HouseholdUnit, 0, len(values))
	for _, v := range values {
		label, raw, ok := strings.Cut(v, "=")
		if !ok {
			return nil, eris.Errorf("household unit %q: want label=grams", v)
		}
		grams, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "household unit %q", v)
		}
		u, err := domain.NewHouseholdUnit(strings.TrimSpace(label), grams)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func optionalFlag(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func init() {
	f := resolveCmd.Flags()
	f.Float64Var(&resolveQuantity, "quantity", 1, "amount eaten")
	f.StringVar(&resolveUnit, "unit", "g", "g, ml, serving or a household label")
	f.Float64Var(&resolveGramsPerServing, "grams-per-serving", 0, "grams in one serving")
	f.Float64Var(&resolveDensity, "density", 0, "density in g/ml")
	f.StringArrayVar(&resolveHousehold, "household", nil, "household unit as label=grams (repeatable)")
	rootCmd.AddCommand(resolveCmd)
}
