package main

import (
	"github.com/spf13/cobra"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/stores"
)

// storesCmd represents the stores command
var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage stores",
	Long:  `Commands for listing, showing and registering stores. Each store owns one backing database.`,
}

var listStoresCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return stores.ListStores(cmd.Context(), c, cmd.OutOrStdout())
	},
}

var showStoreCmd = &cobra.Command{
	Use:   "show [store-name]",
	Short: "Show store details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return stores.ShowStore(cmd.Context(), c, cmd.OutOrStdout(), args[0])
	},
}

var registerStoreOpts stores.RegisterOptions

var registerStoreCmd = &cobra.Command{
	Use:   "register [store-name]",
	Short: "Register a store",
	Long:  `Register a store in the catalog and create its backing database.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		opts := registerStoreOpts
		opts.Name = args[0]
		return stores.RegisterStore(cmd.Context(), c, cmd.OutOrStdout(), opts)
	},
}

func init() {
	f := registerStoreCmd.Flags()
	f.StringVar(&registerStoreOpts.Description, "desc", "", "Store description")
	f.StringVar(&registerStoreOpts.Type, "type", "", "Store type tag")
	f.IntVar(&registerStoreOpts.KeepDays, "keep", 0, "Retention in days")
	f.StringVar(&registerStoreOpts.Update, "update", "part", "Update mode: disable, all or part")
	f.StringArrayVar(&registerStoreOpts.Options, "option", nil, "Extra database option as KEY=VALUE, repeatable")
}
