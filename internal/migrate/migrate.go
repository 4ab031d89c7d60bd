package migrate

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prayagsingh/bookings/internal/db"
)

//go:embed *.sql
var fs embed.FS

// Files lists the embedded migrations in the order they are applied.
func Files() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Up applies every migration not yet recorded in schema_migrations.
func Up(ctx context.Context, d *db.DB, logger *slog.Logger) error {
	files, err := Files()
	if err != nil {
		return err
	}
	if err := ensureTable(ctx, d); err != nil {
		return err
	}

	for _, f := range files {
		applied, err := isApplied(ctx, d, f)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		b, err := fs.ReadFile(f)
		if err != nil {
			return err
		}
		err = d.InTx(ctx, func(tx db.Tx) error {
			if err := tx.Exec(string(b)); err != nil {
				return err
			}
			return tx.Exec(`INSERT INTO schema_migrations(version) VALUES ($1)`, f)
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		logger.Info("migration applied", "version", f)
	}

	return nil
}

// Status is one migration and whether it has been applied.
type Status struct {
	Version string
	Applied bool
}

// List reports every embedded migration with its applied state.
func List(ctx context.Context, d *db.DB) ([]Status, error) {
	files, err := Files()
	if err != nil {
		return nil, err
	}
	if err := ensureTable(ctx, d); err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(files))
	for _, f := range files {
		applied, err := isApplied(ctx, d, f)
		if err != nil {
			return nil, err
		}
		out = append(out, Status{Version: f, Applied: applied})
	}
	return out, nil
}

func ensureTable(ctx context.Context, d *db.DB) error {
	return d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY);`)
}

func isApplied(ctx context.Context, d *db.DB, version string) (bool, error) {
	var applied bool
	err := d.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&applied)
	return applied, err
}
