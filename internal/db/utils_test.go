package db

import (
	"fmt"
	"testing"
)

func TestIsConstraintViolation(t *testing.T) {
	conn, err := Open(Driver, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO t (id) VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, dupErr := conn.Exec(`INSERT INTO t (id) VALUES (1)`)
	if dupErr == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !IsConstraintViolation(dupErr) {
		t.Fatalf("expected constraint violation, got %v", dupErr)
	}

	if IsConstraintViolation(nil) {
		t.Fatal("nil error must not be a constraint violation")
	}
	if IsConstraintViolation(fmt.Errorf("plain error")) {
		t.Fatal("plain error must not be a constraint violation")
	}
}
