package main

func setupCommands() {
	rootCmd.AddCommand(initCmd, healthCmd, loginCmd)

	storesCmd.AddCommand(listStoresCmd, showStoreCmd, registerStoreCmd)
	collectorsCmd.AddCommand(searchCollectorsCmd, showCollectorCmd, registerCollectorCmd)
	pointsCmd.AddCommand(searchPointsCmd, showPointCmd, registerPointCmd)
	rootCmd.AddCommand(storesCmd, collectorsCmd, pointsCmd)
}
