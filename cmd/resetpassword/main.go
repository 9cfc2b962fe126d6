// Command resetpassword sets a new password for a user and ends all of the
// user's sessions. It reads the same configuration as the server.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/vidtube/internal/flagx"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/prompt"
	"github.com/dmitrijs2005/vidtube/internal/server"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
)

// openDB is a test seam for server.OpenDB.
var openDB = server.OpenDB

func main() {
	fs := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	username := fs.String("user", "", "username whose password is reset")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-user"}))

	cfg := config.LoadConfig()

	name := *username
	if name == "" {
		var err error
		name, err = prompt.GetSimpleText(bufio.NewReader(os.Stdin), "Username", os.Stdout)
		if err != nil {
			log.Fatalf("read username: %v", err)
		}
	}

	password, err := prompt.GetNewPassword(os.Stdout)
	if err != nil {
		log.Fatalf("read password: %v", err)
	}

	if err := run(context.Background(), cfg, name, password); err != nil {
		log.Printf("reset failed: %v", err)
		os.Exit(1)
	}

	log.Printf("password for %q was reset", name)
}

func run(ctx context.Context, cfg *config.Config, name, password string) error {
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, m, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	us := services.NewUserService(db, m, nil, cfg, logger)
	return us.ResetPassword(ctx, name, password)
}
