package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/campus/backend/internal/infrastructure/config"
	"github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/infrastructure/migration"
	"github.com/campus/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// errNeedsConfirmation guards commands that drop ledger tables
var errNeedsConfirmation = errors.New("rolling back drops ledger data; rerun with -yes")

type command struct {
	usage string
	// destructive commands refuse to run without -yes
	run func(m *migration.Migrator, args []string, confirmed bool) error
}

var commands = map[string]command{
	"up": {
		usage: "up                Apply all pending migrations",
		run: func(m *migration.Migrator, _ []string, _ bool) error {
			return m.Up()
		},
	},
	"down": {
		usage: "down              Roll back every migration (needs -yes)",
		run: func(m *migration.Migrator, _ []string, confirmed bool) error {
			if !confirmed {
				return errNeedsConfirmation
			}
			return m.Down()
		},
	},
	"step": {
		usage: "step <n>          Apply n migrations, negative n rolls back (needs -yes)",
		run: func(m *migration.Migrator, args []string, confirmed bool) error {
			n, err := intArg(args, "step count")
			if err != nil {
				return err
			}
			if n < 0 && !confirmed {
				return errNeedsConfirmation
			}
			return m.Steps(n)
		},
	},
	"force": {
		usage: "force <version>   Set the version after a failed run, without migrating",
		run: func(m *migration.Migrator, args []string, _ bool) error {
			v, err := intArg(args, "version")
			if err != nil {
				return err
			}
			return m.Force(v)
		},
	},
	"status": {
		usage: "status            List embedded migrations and which are applied",
		run: func(m *migration.Migrator, _ []string, _ bool) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			entries, err := migration.Status(migrations.FS, version, dirty)
			if err != nil {
				return err
			}
			for _, e := range entries {
				mark := " "
				switch {
				case e.Dirty:
					mark = "!"
				case e.Applied:
					mark = "x"
				}
				fmt.Printf("  [%s] %s\n", mark, e.Name)
			}
			return nil
		},
	},
}

func main() {
	var (
		logLevel  string
		confirmed bool
	)
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&confirmed, "yes", false, "Confirm commands that roll migrations back")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"}, "campus-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	// the migrate driver owns db from here and closes it with m
	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	if err := cmd.run(m, args[1:], confirmed); err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Campus ledger schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:`)
	for _, name := range []string{"up", "down", "step", "force", "status"} {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, `
Flags:
  -log-level string  Log level: debug, info, warn, error (default: info)
  -yes               Confirm down and negative step

Connection settings come from config.toml or CAMPUS_DATABASE_* variables.`)
}
