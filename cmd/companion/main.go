// Command companion is the operator CLI for the companion core: it writes
// and inspects memory bundles, runs triage over utterances, and reviews the
// incident log. The conversational front end does not go through this
// binary; it links the core packages directly.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/carevoice/companion-go/pkg/core"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Personal memory and escalation core for a voice support agent",
	Long: "Operator CLI for the companion core. Stores personal facts, family\n" +
		"members, life events, and interests per resident; searches and\n" +
		"summarizes them; and audits the escalation incident log.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openClient builds a client from the environment (.env supported).
func openClient() (*core.Client, error) {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return core.NewClient(cfg)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
