package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"openfinna-go/lib/finna"
	"openfinna-go/lib/util/serviceutil"
)

var (
	searchBuilding *string
	searchPage     *int
	searchLimit    *int
)

func init() {
	searchBuilding = searchCmd.Flags().String(
		"building", "", `Building filter, e.g. "0/Vaski/"; defaults to your resolved building.`)
	searchPage = searchCmd.Flags().Int("page", 1, "Result page, 1-based.")
	searchLimit = searchCmd.Flags().Int("limit", 20, "Results per page.")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recordCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Searches the catalog.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		// a nil building makes the search resolve the account's own
		var building *finna.Building
		if *searchBuilding != "" {
			building = &finna.Building{Id: *searchBuilding}
		}

		result, err := client.Search(cmd.Context(), finna.SearchOptions{
			Query:    strings.Join(args, " "),
			Building: building,
			Page:     *searchPage,
			Limit:    *searchLimit,
		})
		if err != nil {
			serviceutil.Fatal("failed to search", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Title", "Year", "Format"})
		for _, record := range result.Records {
			format := ""
			if len(record.Formats) > 0 {
				format = record.Formats[0].Translated
			}
			t.AppendRow(table.Row{record.Id, record.Title, record.PublicationYear, format})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d results", result.ResultCount), "", ""})
		t.Render()
	},
}

var recordCmd = &cobra.Command{
	Use:   "record <record id>",
	Short: "Shows one catalog record.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		record, err := client.ResourceInfo(cmd.Context(), args[0], false)
		if err != nil {
			serviceutil.Fatal("failed to fetch record", err)
		}

		fmt.Println("title:", record.Title)
		if record.SubTitle != "" {
			fmt.Println("subtitle:", record.SubTitle)
		}
		for _, author := range record.Authors {
			fmt.Printf("author (%s): %s %s\n", author.Type, author.Name,
				strings.Join(author.Roles, ", "))
		}
		fmt.Println("year:", record.PublicationYear)
		if record.ISBN != "" {
			fmt.Println("isbn:", record.ISBN)
		}
		if len(record.Topics) > 0 {
			fmt.Println("topics:", strings.Join(record.Topics, "; "))
		}
		if len(record.YKL) > 0 {
			fmt.Println("ykl:", strings.Join(record.YKL, ", "))
		}
		fmt.Println("cover:", record.ImageLink)
	},
}
