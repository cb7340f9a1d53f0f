package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joao-fontenele/groceryflow/internal/config"
)

const usage = "usage: migrate <up|down [n]|goto <version>|force <version>|version>"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	flag.Parse()
	if flag.NArg() < 1 {
		logger.Error(usage)
		os.Exit(2)
	}

	cfg, err := config.LoadMigrate()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New(cfg.MigrationsPath, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to create migrate instance", "error", err, "path", cfg.MigrationsPath)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, flag.Args(), logger); err != nil {
		logger.Error("migration failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, args []string, logger *slog.Logger) error {
	switch args[0] {
	case "up":
		return report(m.Up(), logger, "migrations applied")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := positive(args[1])
			if err != nil {
				return err
			}
			steps = n
		}
		return report(m.Steps(-steps), logger, "migrations rolled back", "steps", steps)

	case "goto":
		if len(args) < 2 {
			return errors.New(usage)
		}
		v, err := positive(args[1])
		if err != nil {
			return err
		}
		return report(m.Migrate(uint(v)), logger, "migrated to version", "version", v)

	case "force":
		if len(args) < 2 {
			return errors.New(usage)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "parse version")
		}
		if err := m.Force(v); err != nil {
			return errors.Wrap(err, "force version")
		}
		logger.Warn("migration version forced", "version", v)
		return nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read version")
		}
		logger.Info("current migration version", "version", version, "dirty", dirty)
		return nil

	default:
		return errors.Errorf("unknown command %q; %s", args[0], usage)
	}
}

func report(err error, logger *slog.Logger, msg string, attrs ...any) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no change", attrs...)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(msg, attrs...)
	return nil
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "parse number")
	}
	if n <= 0 {
		return 0, errors.Errorf("expected a positive number, got %d", n)
	}
	return n, nil
}
