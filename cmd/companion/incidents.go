package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	incidents := &cobra.Command{
		Use:   "incidents [user-id]",
		Short: "List escalation events for a resident, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   runIncidents,
	}
	rootCmd.AddCommand(incidents)

	ack := &cobra.Command{
		Use:   "ack [event-id] [staff-id]",
		Short: "Mark an escalation event as acknowledged by a staff member",
		Args:  cobra.ExactArgs(2),
		Run:   runAck,
	}
	rootCmd.AddCommand(ack)
}

func runIncidents(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	events, err := client.Incidents(cmd.Context(), args[0])
	if err != nil {
		exitErr("list incidents", err)
	}
	if len(events) == 0 {
		fmt.Println("no incidents recorded")
		return
	}
	printJSON(events)
}

func runAck(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	if err := client.Acknowledge(cmd.Context(), args[0], args[1]); err != nil {
		exitErr("acknowledge event", err)
	}
	fmt.Printf("event %s acknowledged by %s\n", args[0], args[1])
}
