// Package cli implements the maintenance commands reachable from the
// binary's command switch.
package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fragmentado/catalog/internal/auth"
	"github.com/fragmentado/catalog/internal/config"
	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/entrypoint"
)

// BootstrapAdminCommand creates or replaces the admin credential
// without going through the HTTP API.
type BootstrapAdminCommand struct {
	Username string
	Password string
	Force    bool
}

func NewBootstrapAdminCommand() *BootstrapAdminCommand {
	return &BootstrapAdminCommand{}
}

// ParseFlags parses command line flags.
func (cmd *BootstrapAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("bootstrap-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Admin username (at least 4 characters)")
	fs.StringVar(&cmd.Password, "password", "", "Admin password (at least 8 characters)")
	fs.BoolVar(&cmd.Force, "force", false, "Replace the credential if one already exists")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s bootstrap-admin -username NAME -password PASS [-force]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create the admin credential in the configured content store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the bootstrap command.
func (cmd *BootstrapAdminCommand) Run() error {
	if len(cmd.Username) < 4 {
		return fmt.Errorf("username must be at least 4 characters")
	}

	cfg := config.NewConfig()
	contentStore, _, err := entrypoint.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}
	defer contentStore.Close()

	existing, err := contentStore.Admin()
	if err != nil {
		return fmt.Errorf("read admin credential: %w", err)
	}
	if existing != nil && !cmd.Force {
		return fmt.Errorf("an admin account already exists (use -force to replace it)")
	}

	salt, hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := &entities.AdminCredential{
		Key:          entities.AdminKey,
		Username:     cmd.Username,
		PasswordSalt: salt,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing != nil {
		admin.CreatedAt = existing.CreatedAt
	}
	if _, err := contentStore.SetAdmin(admin); err != nil {
		return fmt.Errorf("save admin credential: %w", err)
	}

	fmt.Printf("Admin account %q ready\n", cmd.Username)
	return nil
}
