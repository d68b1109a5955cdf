package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"openfinna-go/lib/util/serviceutil"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(userTypesCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in with the configured credentials and prints the account profile.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		creds := client.Credentials()
		user, err := client.Login(cmd.Context(), creds, true)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}

		fmt.Println("logged in as:", user.Name)
		if user.Building != nil {
			fmt.Println("default building:", user.Building.Name, user.Building.Id)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drops the persisted session.",
	Run: func(cmd *cobra.Command, args []string) {
		_, store := createClient()
		defer store.Close()

		if err := store.Clear(); err != nil {
			serviceutil.Fatal("failed to clear auth state", err)
		}
		fmt.Println("session cleared")
	},
}

var userTypesCmd = &cobra.Command{
	Use:   "user-types",
	Short: "Lists the library systems selectable at login.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		types, err := client.UserTypes(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list user types", err)
		}
		for _, userType := range types {
			fmt.Printf("%s\t%s\n", userType.Id, userType.Name)
		}
	},
}
