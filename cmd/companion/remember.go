package main

import (
	"fmt"
	"strings"

	"github.com/carevoice/companion-go/pkg/core"
	"github.com/spf13/cobra"
)

func init() {
	remember := &cobra.Command{
		Use:   "remember",
		Short: "Store facts about a resident",
	}

	info := &cobra.Command{
		Use:   "info [user-id] [field=value ...]",
		Short: "Upsert personal information fields",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRememberInfo,
	}

	event := &cobra.Command{
		Use:   "event [user-id] [description]",
		Short: "Append a life event",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRememberEvent,
	}
	event.Flags().String("date", "", "Free-form date text (\"June 1955\", \"when I was 25\")")

	family := &cobra.Command{
		Use:   "family [user-id] [name] [relationship]",
		Short: "Append a family member",
		Args:  cobra.ExactArgs(3),
		Run:   runRememberFamily,
	}
	family.Flags().String("details", "", "Extra detail about the family member")

	interest := &cobra.Command{
		Use:   "interest [user-id] [description]",
		Short: "Append an interest",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRememberInterest,
	}

	remember.AddCommand(info, event, family, interest)
	rootCmd.AddCommand(remember)
}

func runRememberInfo(cmd *cobra.Command, args []string) {
	fields := make(map[string]string)
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			exitErr("parse fields", fmt.Errorf("expected field=value, got %q", pair))
		}
		fields[key] = value
	}

	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	record, err := client.StorePersonalInfo(cmd.Context(), args[0], fields)
	if err != nil {
		exitErr("store personal info", err)
	}
	printRecord(record)
}

func runRememberEvent(cmd *cobra.Command, args []string) {
	date, _ := cmd.Flags().GetString("date")
	description := strings.Join(args[1:], " ")

	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	var opts []core.LifeEventOption
	if date != "" {
		opts = append(opts, core.WithEventDate(date))
	}
	record, err := client.AddLifeEvent(cmd.Context(), args[0], description, opts...)
	if err != nil {
		exitErr("add life event", err)
	}
	printRecord(record)
}

func runRememberFamily(cmd *cobra.Command, args []string) {
	details, _ := cmd.Flags().GetString("details")

	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	var opts []core.FamilyMemberOption
	if details != "" {
		opts = append(opts, core.WithDetails(details))
	}
	record, err := client.AddFamilyMember(cmd.Context(), args[0], args[1], args[2], opts...)
	if err != nil {
		exitErr("add family member", err)
	}
	printRecord(record)
}

func runRememberInterest(cmd *cobra.Command, args []string) {
	client, err := openClient()
	if err != nil {
		exitErr("open client", err)
	}
	defer client.Close()

	record, err := client.AddInterest(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		exitErr("add interest", err)
	}
	printRecord(record)
}

func printRecord(record *core.MemoryRecord) {
	printJSON(record)
}
