package cache

import "context"

// SetSchemaVersionForTest overwrites the stored schema version.
func SetSchemaVersionForTest(ctx context.Context, c *Cache, version int) error {
	_, err := c.db.ExecContext(ctx, "UPDATE schema_version SET version = ?", version)
	return err
}
