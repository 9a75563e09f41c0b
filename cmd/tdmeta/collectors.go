package main

import (
	"github.com/spf13/cobra"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/collectors"
)

// collectorsCmd represents the collectors command
var collectorsCmd = &cobra.Command{
	Use:   "collectors",
	Short: "Manage collectors",
}

var searchCollectorsCmd = &cobra.Command{
	Use:   "search",
	Short: "Search collectors by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		like, _ := cmd.Flags().GetString("like")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return collectors.SearchCollectors(cmd.Context(), c, cmd.OutOrStdout(), like, page, size)
	},
}

var showCollectorCmd = &cobra.Command{
	Use:   "show [collector-name]",
	Short: "Show collector details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return collectors.ShowCollector(cmd.Context(), c, cmd.OutOrStdout(), args[0])
	},
}

var registerCollectorCmd = &cobra.Command{
	Use:   "register [collector-name]",
	Short: "Register a collector",
	Long:  `Register a collector. --type selects a collector type declared under collector_types in the config file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("desc")
		typeTag, _ := cmd.Flags().GetString("type")
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return collectors.RegisterCollector(cmd.Context(), c, cmd.OutOrStdout(), args[0], desc, typeTag)
	},
}

func init() {
	searchCollectorsCmd.Flags().String("like", "", "Name substring")
	searchCollectorsCmd.Flags().Int("page", 0, "Page number, starting at 0")
	searchCollectorsCmd.Flags().Int("size", 20, "Page size")

	registerCollectorCmd.Flags().String("desc", "", "Collector description")
	registerCollectorCmd.Flags().String("type", "", "Collector type tag")
}
