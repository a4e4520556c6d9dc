package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	summary := &cobra.Command{
		Use:   "summary [user-id]",
		Short: "Print a readable summary of everything known about a resident",
		Args:  cobra.ExactArgs(1),
		Run:   runSummary,
	}
	rootCmd.AddCommand(summary)

	bundle := &cobra.Command{
		Use:   "bundle [user-id]",
		Short: "Dump a resident's full memory bundle as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   runBundle,
	}
	rootCmd.AddCommand(bundle)
}

func runSummary(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	sum, err := client.MemorySummary(cmd.Context(), args[0])
	if err != nil {
		exitErr("summarize memories", err)
	}
	if len(sum.Categories) == 0 {
		fmt.Printf("nothing recorded yet for %s\n", sum.UserID)
		return
	}
	for _, block := range sum.Categories {
		fmt.Printf("%s:\n", block.Category)
		for _, entry := range block.Entries {
			fmt.Printf("  - %s\n", entry)
		}
	}
}

func runBundle(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	bundle, err := client.GetBundle(cmd.Context(), args[0])
	if err != nil {
		exitErr("load bundle", err)
	}
	printJSON(bundle)
}
