package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dom/document-viewer/internal/app"
	"github.com/dom/document-viewer/internal/config"
	"github.com/dom/document-viewer/internal/logging"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init-admin":
		err = initAdminCmd(args)
	case "sync-documents":
		err = syncDocumentsCmd(args)
	case "sweep-sessions":
		err = sweepSessionsCmd(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Document viewer administration

USAGE:
  admin <command> [options]

COMMANDS:
  init-admin      Create the admin group and an admin user if they are missing
  sync-documents  Register every unregistered document folder, visible to admins
  sweep-sessions  Delete expired sessions
  help            Show this help message

Configuration is read from the environment and .env, as for the server.

EXAMPLES:
  admin init-admin --username=admin --email=admin@example.com --password=changeme123
  admin sync-documents`)
}

func open() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg, logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
}

func initAdminCmd(args []string) error {
	fs := flag.NewFlagSet("init-admin", flag.ExitOnError)
	username := fs.String("username", "admin", "Admin username")
	email := fs.String("email", "admin@example.com", "Admin email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password (default $ADMIN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("--password or ADMIN_PASSWORD is required")
	}

	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Services.Admin.EnsureAdmin(context.Background(), *username, *email, *password)
	if err != nil {
		return err
	}

	if result.GroupCreated {
		fmt.Printf("Created group %q (%s)\n", result.Group.Name, result.Group.ID)
	} else {
		fmt.Printf("Group %q already exists (%s)\n", result.Group.Name, result.Group.ID)
	}
	if result.UserCreated {
		fmt.Printf("Created user %q (%s)\n", result.User.Username, result.User.ID)
	} else {
		fmt.Printf("User %q already exists; added to %q, password unchanged\n", result.User.Username, result.Group.Name)
	}
	return nil
}

func syncDocumentsCmd(args []string) error {
	fs := flag.NewFlagSet("sync-documents", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Only list the folders that would be registered")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if *dryRun {
		scan, err := a.Services.Catalog.Scan(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d folder(s), %d registered, %d new\n",
			len(scan.AvailableFolders), len(scan.ExistingDocuments), len(scan.NewFolders))
		if len(scan.NewFolders) > 0 {
			fmt.Println("New: " + strings.Join(scan.NewFolders, ", "))
		}
		return nil
	}

	result, err := a.Services.Catalog.Sync(ctx, uuid.Nil)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %d document(s)\n", len(result.Registered))
	for _, id := range result.Registered {
		fmt.Println("  + " + id)
	}
	for _, e := range result.Errors {
		fmt.Printf("  ! %s: %s\n", e.ID, e.Error)
	}
	return nil
}

func sweepSessionsCmd(args []string) error {
	fs := flag.NewFlagSet("sweep-sessions", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Services.Auth.SweepExpired(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d expired session(s)\n", n)
	return nil
}
