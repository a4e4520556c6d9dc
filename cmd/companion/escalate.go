package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	escalate := &cobra.Command{
		Use:   "escalate [user-id] [utterance]",
		Short: "Run triage over an utterance and escalate if it matches",
		Args:  cobra.MinimumNArgs(2),
		Run:   runEscalate,
	}
	rootCmd.AddCommand(escalate)
}

func runEscalate(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	result, err := client.HandleUtterance(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		// Delivery failures still carry a logged event and a degraded
		// acknowledgment; show both before exiting nonzero.
		if result != nil && result.Event != nil {
			printJSON(result)
		}
		exitErr("handle utterance", err)
	}
	if result.Event == nil {
		fmt.Println("no escalation keywords matched")
		return
	}
	printJSON(result)
}
