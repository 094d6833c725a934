package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rumoo/internal/intake"
)

var confirmCorr struct {
	address      string
	price        float64
	beds         int
	baths        float64
	sqft         int
	yearBuilt    int
	propertyType string
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <token>",
	Short: "Complete a pending url-only intake and certify it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "confirm")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Confirmer.Confirm(ctx, args[0], correctionFromFlags(cmd))
		if err != nil {
			return eris.Wrap(err, "confirm")
		}
		return printJSON(res)
	},
}

// correctionFromFlags keeps only the flags the user set.
func correctionFromFlags(cmd *cobra.Command) intake.Correction {
	c := intake.Correction{
		Address:      confirmCorr.address,
		PropertyType: confirmCorr.propertyType,
	}
	flags := cmd.Flags()
	if flags.Changed("price") {
		c.Price = &confirmCorr.price
	}
	if flags.Changed("beds") {
		c.Beds = &confirmCorr.beds
	}
	if flags.Changed("baths") {
		c.Baths = &confirmCorr.baths
	}
	if flags.Changed("sqft") {
		c.Sqft = &confirmCorr.sqft
	}
	if flags.Changed("year-built") {
		c.YearBuilt = &confirmCorr.yearBuilt
	}
	return c
}

func init() {
	f := confirmCmd.Flags()
	f.StringVar(&confirmCorr.address, "address", "", "confirmed street address")
	f.Float64Var(&confirmCorr.price, "price", 0, "listing price")
	f.IntVar(&confirmCorr.beds, "beds", 0, "bedrooms")
	f.Float64Var(&confirmCorr.baths, "baths", 0, "bathrooms")
	f.IntVar(&confirmCorr.sqft, "sqft", 0, "interior square feet")
	f.IntVar(&confirmCorr.yearBuilt, "year-built", 0, "year built")
	f.StringVar(&confirmCorr.propertyType, "property-type", "", "property type")
	_ = confirmCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(confirmCmd)
}
