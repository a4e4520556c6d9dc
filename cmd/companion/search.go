package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	search := &cobra.Command{
		Use:   "search [user-id] [query]",
		Short: "Search a resident's memory records by keyword",
		Args:  cobra.MinimumNArgs(2),
		Run:   runSearch,
	}
	rootCmd.AddCommand(search)
}

func runSearch(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	records, err := client.SearchMemories(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		exitErr("search memories", err)
	}
	if len(records) == 0 {
		fmt.Println("no matches")
		return
	}
	printJSON(records)
}
