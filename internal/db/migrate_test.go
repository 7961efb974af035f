package db

import (
	"testing"

	"github.com/stickfix/stickfix/migrations"
)

func TestRunMigrateUnknownCommand(t *testing.T) {
	conn, err := Open(Driver, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := RunMigrate(nil, conn, migrations.FS, "invalid", nil); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunMigrateForceRequiresVersion(t *testing.T) {
	conn, err := Open(Driver, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := RunMigrate(nil, conn, migrations.FS, "force", nil); err == nil {
		t.Fatal("expected error for missing version argument")
	}
}
