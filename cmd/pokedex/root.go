package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pokedex",
		Short:         "Search Pokémon by name",
		Long:          "A small web site that looks Pokémon up by name against a public GraphQL API and renders their cards.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRoutesCmd(), newVersionCmd())
	return root
}
