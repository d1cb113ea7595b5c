// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package main implements the mdip command: database setup, CSV loads,
// user administration and the dashboard server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/mdhender/mdip"
	"github.com/mdhender/mdip/config"
	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/pipelines/csvload"
	store "github.com/mdhender/mdip/stores/sqlite"
	"github.com/mdhender/mdip/web/auth"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().String("config", "", "configuration file (default ./mdip.yaml if present)")
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", true, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		cmd.PersistentFlags().Bool("verbose", false, "log more information")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "mdip",
		Short: "Multi-Domain Intelligence Platform",
		Long:  `Manage the mdip database, load CSV data and run the dashboard`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags || logFlags == 0 {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("mdip: version %q\n", mdip.Version().Core())
			}

			return nil
		},
	}
	cmdRoot.AddCommand(cmdInitDB())
	cmdRoot.AddCommand(cmdCompactDB())
	cmdRoot.AddCommand(cmdLoad())
	cmdRoot.AddCommand(cmdSeed())
	cmdRoot.AddCommand(cmdServe())
	cmdRoot.AddCommand(cmdUsers())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves settings for cmd, with its flags taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(cmd.Flags(), configFile)
}

func addDBFlag(flags *pflag.FlagSet) {
	flags.String("db", config.Default.DB, "SQLite database file path")
}

func openStore(path string) (*store.SQLiteStore, error) {
	log.Printf("store: using file-based SQLite: %s", path)
	s, err := store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: path})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func cmdInitDB() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "init-db",
		Short:        "create a new database file with all tables",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := store.InitDatabase(cfg.DB); err != nil {
				return err
			}
			log.Printf("store: created %s", cfg.DB)
			return nil
		},
	}
	addDBFlag(cmd.Flags())
	return cmd
}

func cmdCompactDB() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "compact-db",
		Short:        "checkpoint the WAL and vacuum the database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := store.CompactDatabase(cfg.DB); err != nil {
				return err
			}
			log.Printf("store: compacted %s", cfg.DB)
			return nil
		},
	}
	addDBFlag(cmd.Flags())
	return cmd
}

func cmdLoad() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "load <table> <file.csv>",
		Short:        "append the rows of a CSV file to a table",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := model.ParseTable(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg.DB)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := csvload.NewLoader(s).Load(cmd.Context(), args[1], table)
			if err != nil {
				return fmt.Errorf("%s: %w", csvload.ErrorCode(err), err)
			}
			fmt.Println(result)
			return nil
		},
	}
	addDBFlag(cmd.Flags())
	return cmd
}

// seedTables are loaded by seed from <data>/<table>.csv, in order.
var seedTables = []model.Table{
	model.TableCyberIncidents,
	model.TableDatasets,
	model.TableITTickets,
}

func cmdSeed() *cobra.Command {
	var usersFile string
	var cmd = &cobra.Command{
		Use:          "seed",
		Short:        "migrate users and load the incident, dataset and ticket CSV files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg.DB)
			if err != nil {
				return err
			}
			defer s.Close()

			failed := seed(cmd.Context(), s, cfg.Data, usersFile, quiet)

			stats, err := s.TableStats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "table\trows\t")
			for _, table := range append(slices.Clone(model.LoadableTables), model.TableLoadHistory) {
				fmt.Fprintf(w, "%s\t%d\t\n", table, stats[table])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("seed: %d step(s) failed", failed)
			}
			return nil
		},
	}
	addDBFlag(cmd.Flags())
	cmd.Flags().String("data", config.Default.Data, "directory containing the CSV files")
	cmd.Flags().StringVar(&usersFile, "users", usersFile, "users.txt file to migrate (username,bcrypt-hash per line)")
	return cmd
}

// seed runs every step even when an earlier one fails and returns the number of failures.
func seed(ctx context.Context, s *store.SQLiteStore, dataDir, usersFile string, quiet bool) (failed int) {
	if usersFile != "" {
		n, err := s.ImportUsersFile(ctx, afero.NewOsFs(), usersFile)
		if err != nil {
			log.Printf("seed: users: %v", err)
			failed++
		} else if !quiet {
			log.Printf("seed: migrated %d user(s) from %s", n, usersFile)
		}
	}

	loader := csvload.NewLoader(s)
	for _, table := range seedTables {
		path := filepath.Join(dataDir, string(table)+".csv")
		result, err := loader.Load(ctx, path, table)
		if err != nil {
			log.Printf("seed: %s: %s: %v", table, csvload.ErrorCode(err), err)
			failed++
			continue
		}
		if !quiet {
			fmt.Println(result)
		}
	}
	return failed
}

func cmdUsers() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "users",
		Short: "manage user accounts",
	}
	cmd.AddCommand(cmdUsersAdd())
	cmd.AddCommand(cmdUsersImport())
	cmd.AddCommand(cmdUsersList())
	addDBFlag(cmd.PersistentFlags())
	return cmd
}

func cmdUsersAdd() *cobra.Command {
	role := model.DefaultRole
	var cmd = &cobra.Command{
		Use:          "add <username> <password>",
		Short:        "register a new user",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := args[0], args[1]
			if err := auth.ValidateUsername(username); err != nil {
				return err
			}
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg.DB)
			if err != nil {
				return err
			}
			defer s.Close()

			u, err := s.RegisterUser(cmd.Context(), username, password, role, cfg.BcryptCost)
			if errors.Is(err, model.ErrUserExists) {
				return fmt.Errorf("%s: %w", username, err)
			} else if err != nil {
				return err
			}
			log.Printf("auth: registered %s (id %d, role %s)", u.Username, u.ID, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", role, "role for the new user")
	return cmd
}

func cmdUsersImport() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "import <users.txt>",
		Short:        "migrate users from a username,bcrypt-hash file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg.DB)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.ImportUsersFile(cmd.Context(), afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			log.Printf("auth: migrated %d user(s) from %s", n, args[0])
			return nil
		},
	}
	return cmd
}

func cmdUsersList() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "list",
		Short:        "list user accounts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg.DB)
			if err != nil {
				return err
			}
			defer s.Close()

			users, err := s.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.Role)
			}
			return w.Flush()
		},
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Println(mdip.Build())
				return nil
			}
			fmt.Println(mdip.Version().Core())
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}
