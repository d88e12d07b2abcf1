package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slicelab/ovenflow"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Print the embedded catalog with per-size prices",
	Run: func(_ *cobra.Command, _ []string) {
		menu := ovenflow.DefaultMenu()
		sizes := []ovenflow.Size{ovenflow.SizeSmall, ovenflow.SizeMedium, ovenflow.SizeLarge}

		for _, pizza := range menu.Pizzas() {
			fmt.Printf("%-20s %s\n", pizza.ID, pizza.Description)
			for _, size := range sizes {
				price := menu.PriceForConfiguration(pizza, size, nil)
				fmt.Printf("    %-12s %6.2f\n", menu.SizeLabel(size), price)
			}
		}
	},
}
