package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"openfinna-go/lib/util/serviceutil"
)

func init() {
	loansCmd.AddCommand(renewCmd)
	rootCmd.AddCommand(loansCmd)
}

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "Lists your current checkouts.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		loans, err := client.Loans(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list loans", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Title", "Author", "Due", "Renews"})
		for _, loan := range loans {
			t.AppendRow(table.Row{
				loan.Id,
				loan.Resource.Title,
				loan.Resource.Author,
				loan.DueDate.Format("2.1.2006"),
				fmt.Sprintf("%d/%d", loan.RenewsUsed, loan.RenewsTotal),
			})
		}
		t.Render()
	},
}

var renewCmd = &cobra.Command{
	Use:   "renew <loan id>",
	Short: "Renews one checkout.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		loans, err := client.Loans(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list loans", err)
		}
		for _, loan := range loans {
			if loan.Id != args[0] {
				continue
			}
			message, err := client.RenewLoan(cmd.Context(), loan)
			if err != nil {
				serviceutil.Fatal("failed to renew loan", err)
			}
			fmt.Println(message)
			return
		}
		serviceutil.Fatal("failed to renew loan", fmt.Errorf("no loan with id %q", args[0]))
	},
}
