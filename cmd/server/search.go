package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macrolens/foodrecon/internal/usecase"
)

var searchDetails bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the configured catalog and print merged records as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if searchDetails {
			id, err := usecase.ParseFdcID(args[0])
			if err != nil {
				return err
			}
			food, err := env.Catalog.Details(cmd.Context(), id)
			if err != nil {
				return err
			}
			return enc.Encode(food)
		}

		foods, err := env.Catalog.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return enc.Encode(foods)
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchDetails, "details", false, "treat the argument as a FoodData Central id and fetch its record")
	rootCmd.AddCommand(searchCmd)
}
