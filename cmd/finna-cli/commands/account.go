package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"openfinna-go/lib/util/serviceutil"
)

func init() {
	accountCmd.AddCommand(pickupCmd)
	accountCmd.AddCommand(setPickupCmd)
	rootCmd.AddCommand(accountCmd)
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Shows the account profile.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		user, err := client.AccountDetails(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to fetch account details", err)
		}

		fmt.Println("name:", user.Name)
		prefs := user.LibraryPreferences
		fmt.Println("address:", prefs.Address, prefs.Zipcode, prefs.City)
		fmt.Println("phone:", prefs.PhoneNumber)
		fmt.Println("email:", prefs.Email)
		if user.Building != nil {
			fmt.Println("building:", user.Building.Name, user.Building.Id)
		}
	},
}

var pickupCmd = &cobra.Command{
	Use:   "pickup",
	Short: "Shows the default pickup location and the alternatives.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		selected, options, err := client.DefaultPickupLocation(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to fetch pickup location", err)
		}

		for _, location := range options {
			marker := " "
			if selected != nil && location.Id == selected.Id {
				marker = "*"
			}
			fmt.Printf("%s %s\t%s\n", marker, location.Id, location.Name)
		}
	},
}

var setPickupCmd = &cobra.Command{
	Use:   "set-pickup <location id>",
	Short: "Sets the default pickup location.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		if err := client.ChangeDefaultPickupLocation(cmd.Context(), args[0]); err != nil {
			serviceutil.Fatal("failed to set pickup location", err)
		}
		fmt.Println("default pickup location changed")
	},
}
