package main

import (
	"github.com/spf13/cobra"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/points"
)

// pointsCmd represents the points command
var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Manage points",
	Long:  `Commands for searching, showing and registering points. A point binds one collector to one store.`,
}

var searchPointsCmd = &cobra.Command{
	Use:   "search",
	Short: "Search points by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		like, _ := cmd.Flags().GetString("like")
		store, _ := cmd.Flags().GetString("store")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return points.SearchPoints(cmd.Context(), c, cmd.OutOrStdout(), like, store, page, size)
	},
}

var showPointCmd = &cobra.Command{
	Use:   "show [point-key]",
	Short: "Show point details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return points.ShowPoint(cmd.Context(), c, cmd.OutOrStdout(), args[0])
	},
}

var registerPointOpts points.RegisterOptions

var registerPointCmd = &cobra.Command{
	Use:   "register [point-name]",
	Short: "Register a point",
	Long:  `Register a point of a collector in a store. Secrets go to the keyring under the new point key.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		opts := registerPointOpts
		opts.Name = args[0]
		return points.RegisterPoint(cmd.Context(), c, cmd.OutOrStdout(), opts, sess.SavePointOption)
	},
}

func init() {
	searchPointsCmd.Flags().String("like", "", "Name substring")
	searchPointsCmd.Flags().String("store", "", "Only points of this store")
	searchPointsCmd.Flags().Int("page", 0, "Page number, starting at 0")
	searchPointsCmd.Flags().Int("size", 20, "Page size")

	f := registerPointCmd.Flags()
	f.StringVar(&registerPointOpts.Store, "store", "", "Store name")
	f.StringVar(&registerPointOpts.Collector, "collector", "", "Collector name")
	f.StringVar(&registerPointOpts.Description, "desc", "", "Point description")
	f.StringVar(&registerPointOpts.Type, "type", "", "Point type tag")
	f.StringArrayVar(&registerPointOpts.Tags, "tag", nil, "Collector tag value as KEY=VALUE, repeatable")
	f.StringArrayVar(&registerPointOpts.Secrets, "secret", nil, "Private option as KEY=VALUE, repeatable")
	_ = registerPointCmd.MarkFlagRequired("store")
	_ = registerPointCmd.MarkFlagRequired("collector")
}
