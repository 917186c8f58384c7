package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/AlekSi/pointer"
	"github.com/spf13/cobra"

	"github.com/gratefultolord/loan_intake_bot/internal/customer"
	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
)

func newCustomersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Inspect or load the customer directory",
	}

	cmd.AddCommand(newCustomersListCmd(), newCustomersImportCmd())

	return cmd
}

func newCustomersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the configured customer directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			customers, err := a.Directory.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMOBILE\tLIMIT")
			for _, c := range customers {
				limit := "-"
				if v := pointer.GetFloat64(c.PreapprovedLimit); v > 0 {
					limit = onboarding.FormatRupees(v)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Mobile, limit)
			}

			return w.Flush()
		},
	}
}

func newCustomersImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Upsert customers from a YAML file into postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			customers, err := customer.Parse(data)
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			repo, ok := a.Customers()
			if !ok {
				return errors.New("import needs a database: set DB_NAME")
			}

			for _, c := range customers {
				if err := repo.Upsert(cmd.Context(), c); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d customers\n", len(customers))

			return nil
		},
	}
}
