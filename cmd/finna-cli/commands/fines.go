package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"openfinna-go/lib/util/serviceutil"
)

func init() {
	rootCmd.AddCommand(finesCmd)
}

var finesCmd = &cobra.Command{
	Use:   "fines",
	Short: "Lists your outstanding fees.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		fines, err := client.Fines(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list fines", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "Description", "Amount"})
		for _, fine := range fines.Fines {
			t.AppendRow(table.Row{
				fine.RegistrationDate.Format("2.1.2006"),
				fine.Description,
				fmt.Sprintf("%.2f %s", fine.Price, fines.Currency),
			})
		}
		t.AppendFooter(table.Row{"", "Payable / Total",
			fmt.Sprintf("%.2f / %.2f %s", fines.PayableDue, fines.TotalDue, fines.Currency)})
		t.Render()
	},
}
