package commands

import (
	"log/slog"
	"os"

	"openfinna-go/cmd/finna-cli/state"
	"openfinna-go/lib/configutil"
	"openfinna-go/lib/finna"
	"openfinna-go/lib/util/serviceutil"
)

type Config struct {
	BaseUrl  string `json:"base_url"`
	Language string `json:"language"`
	UserType string `json:"user_type"`
	Username string `json:"username"`
	Password string `json:"password"`
	StateDb  string `json:"state_db"`
}

var configFile *string

func init() {
	configFile = rootCmd.PersistentFlags().String(
		"config", "config.json5", "The config file to read credentials from.")
}

// createClient wires config, persisted session state and the portal client
// together. The stored session is resumed when one exists; whenever the
// client re-authenticates, the new session (and resolved building) is
// written back to the state db.
func createClient() (*finna.Client, *state.Store) {
	cfg, err := configutil.ReadConfig[Config](*configFile)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if password := os.Getenv("FINNA_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if cfg.StateDb == "" {
		cfg.StateDb = ".dev/finna-cli.db"
	}

	store, err := state.Open(cfg.StateDb)
	if err != nil {
		serviceutil.Fatal("failed to open state db", err)
	}
	session, building, err := store.Load()
	if err != nil {
		serviceutil.Fatal("failed to load auth state", err)
	}

	client, err := finna.NewClient(finna.Options{
		BaseUrl:  cfg.BaseUrl,
		Language: cfg.Language,
		Credentials: finna.Credentials{
			UserType: finna.UserType{Id: cfg.UserType},
			Username: cfg.Username,
			Password: cfg.Password,
			Session:  session,
		},
		OnAuthChange: func(change finna.AuthChange) {
			err := store.Save(change.Credentials.Session, change.Building)
			if err != nil {
				slog.Warn("failed to persist auth state", "err", err)
			}
		},
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}
	if building != nil {
		client.SetCachedBuilding(building)
	}

	slog.Info("using portal account", "username", cfg.Username)
	return client, store
}
