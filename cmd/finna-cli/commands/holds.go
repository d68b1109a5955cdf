package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"openfinna-go/lib/finna"
	"openfinna-go/lib/util/serviceutil"
)

func init() {
	holdsCmd.AddCommand(cancelHoldCmd)
	holdsCmd.AddCommand(holdPickupCmd)
	holdsCmd.AddCommand(placeHoldCmd)
	rootCmd.AddCommand(holdsCmd)
}

func findHold(cmd *cobra.Command, client *finna.Client, id string) finna.Hold {
	holds, err := client.Holds(cmd.Context())
	if err != nil {
		serviceutil.Fatal("failed to list holds", err)
	}
	for _, hold := range holds {
		if hold.Id == id {
			return hold
		}
	}
	serviceutil.Fatal("failed to find hold", fmt.Errorf("no hold with id %q", id))
	return finna.Hold{}
}

var holdsCmd = &cobra.Command{
	Use:   "holds",
	Short: "Lists your open reservations.",
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		holds, err := client.Holds(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list holds", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Title", "Status", "Queue", "Pickup", "Expires"})
		for _, hold := range holds {
			t.AppendRow(table.Row{
				hold.Id,
				hold.Resource.Title,
				hold.Status,
				hold.QueuePosition,
				hold.PickupData.LocationName,
				hold.ExpirationDate.Format("2.1.2006"),
			})
		}
		t.Render()
	},
}

var cancelHoldCmd = &cobra.Command{
	Use:   "cancel <hold id>",
	Short: "Cancels one reservation.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		hold := findHold(cmd, client, args[0])
		if !hold.Cancellable {
			serviceutil.Fatal("failed to cancel hold",
				fmt.Errorf("hold %q is no longer cancellable", args[0]))
		}
		if err := client.CancelHold(cmd.Context(), hold); err != nil {
			serviceutil.Fatal("failed to cancel hold", err)
		}
		fmt.Println("hold cancelled")
	},
}

var holdPickupCmd = &cobra.Command{
	Use:   "pickup <hold id> <location id>",
	Short: "Moves a reservation to another pickup location.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		hold := findHold(cmd, client, args[0])
		if err := client.ChangeHoldPickupLocation(cmd.Context(), hold, args[1]); err != nil {
			serviceutil.Fatal("failed to change pickup location", err)
		}
		fmt.Println("pickup location changed")
	},
}

var placeHoldLocation *string

func init() {
	placeHoldLocation = placeHoldCmd.Flags().String(
		"location", "", "Pickup location id; the hold form's options are printed when omitted.")
}

var placeHoldCmd = &cobra.Command{
	Use:   "place <record id> [--location <location id>]",
	Short: "Places a hold on a catalog record.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, store := createClient()
		defer store.Close()

		details, err := client.HoldingDetails(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to fetch hold form", err)
		}
		if len(details.HoldingTypes) == 0 {
			serviceutil.Fatal("failed to place hold", fmt.Errorf("record has no holding types"))
		}
		holdingType := details.HoldingTypes[0]

		if *placeHoldLocation == "" {
			locations, err := client.PickupLocations(cmd.Context(), args[0], holdingType.Id)
			if err != nil {
				serviceutil.Fatal("failed to list pickup locations", err)
			}
			fmt.Println("pick a location and re-run with --location:")
			for _, location := range locations {
				fmt.Printf("%s\t%s\n", location.Id, location.Name)
			}
			return
		}

		err = client.MakeHold(cmd.Context(), args[0], finna.HoldRequest{
			HoldingTypeId:    holdingType.Id,
			PickupLocationId: *placeHoldLocation,
			RequiredBy:       details.DateSelectionDefault,
		})
		if err != nil {
			serviceutil.Fatal("failed to place hold", err)
		}
		fmt.Println("hold placed")
	},
}
