// Package cmd implements the addistalk command line: the web server plus staff maintenance commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

var configPath string

// openDatabase is swapped out by tests.
var openDatabase = config.OpenDatabase

// NewRootCommand builds the command tree. Running it without a subcommand starts the server.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "addistalk",
		Short: "AddisTalk blog server and staff tools",
		Long: `AddisTalk serves the blog (posts, moderated comments, likes, contact form) and
provides staff commands for the moderation queue and the contact inbox.

Examples:
  addistalk                               # start the web server
  addistalk migrate                       # create or update tables
  addistalk contact list --is-read false  # unread contact messages
  addistalk comments approve 12 13        # approve two comments`,
		SilenceUsage: true,
		RunE:         serveCommand,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "Path to the JSON configuration file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newContactCommand())
	root.AddCommand(newCommentsCommand())
	root.AddCommand(newPostsCommand())
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, starts logging and opens the database.
func setup() (config.AppConfig, *gorm.DB, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return cfg, nil, err
	}
	config.Set(cfg)
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

func migrate(db *gorm.DB) error {
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
