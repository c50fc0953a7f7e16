// Command finanote-user provisions a user and prints the id to put in the
// "sub" claim of that user's tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"finanote/internal/backend"
	"finanote/internal/cli"
	applog "finanote/internal/log"
)

func main() {
	name := flag.String("name", "", "display name of the new user")
	email := flag.String("email", "", "email address of the new user")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Error("finanote-user requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Events are not needed to create a user.
	be, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backend.Config{
			Type:         backend.SQLiteBackend,
			SQLiteDBPath: cfg.SQLiteDBPath,
		})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	user, err := be.UserService.Register(context.Background(), *name, *email)
	cli.CloseAll(logger, cli.Closer{Name: "backend", Close: be.Cleanup})
	if err != nil {
		logger.Error("Failed to register user", "error", err)
		os.Exit(1)
	}
	fmt.Printf("created user %d (%s) with monthly budget %s\n", user.ID, user.Email, user.MonthlyBudget)
}
