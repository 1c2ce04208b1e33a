package pricestore

import "context"

// RecordForeignMigration marks a migration this build does not ship as applied.
func (s *Store) RecordForeignMigration(ctx context.Context, version string) error {
	_, err := s.db.ExecContext(ctx, s.q("INSERT INTO schema_migrations (version) VALUES (?)"), version)
	return err
}
