// Command tutor runs the study tutor service and its terminal client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "tutor",
		Short:         "Study tutor: topic-tagged conversations, quizzes and study plans",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (defaults to $TUTOR_CONFIG)")

	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newChatCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
