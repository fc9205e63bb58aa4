package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Migrate aplica los .sql embebidos en orden lexicográfico. Las migraciones
// son idempotentes (IF NOT EXISTS) así que no se lleva tabla de versiones.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("migrate: read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("migrate: read %s: %w", name, err)
		}
		ctx2, cancel := s.opCtx(ctx)
		_, err = s.pool.Exec(ctx2, string(sql))
		cancel()
		if err != nil {
			return fmt.Errorf("migrate: apply %s: %w", name, err)
		}
		s.log.Info("migration_applied", zap.String("file", name))
	}
	return nil
}
