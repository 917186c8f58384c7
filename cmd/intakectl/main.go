package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "intakectl",
		Short:         "Operator tools for the loan intake assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newChatCmd(), newCustomersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
