package migrations

import (
	"testing"

	"github.com/ehr/patientstore/internal/platform/db"
)

func TestEmbeddedMigrationsLoad(t *testing.T) {
	migrations, err := db.NewMigrator(nil, FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected bundled migrations")
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_patient.sql" {
		t.Errorf("unexpected first migration %d %s", migrations[0].Version, migrations[0].Name)
	}
}
