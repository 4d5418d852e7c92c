package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prosupplyhq/prosupply-backend/pkg/migrate"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE order_status AS ENUM ('saved', 'cancelled')",
		"status order_status NOT NULL DEFAULT 'saved'",
		"CHECK (quantity > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_order_positions_order_stock ON order_positions (order_id, stock_id)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TYPE IF EXISTS order_status",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
