package database

import (
	"io/fs"
	"strings"
	"testing"
)

// 埋め込みマイグレーションにup/downのペアが存在することを検証
func TestMigrationsFS_ContainsUpDownPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	if len(entries) == 0 {
		t.Fatal("expected at least one migration file")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file name: %s", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no down file", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %s has no up file", base)
		}
	}
}

// usersテーブルのマイグレーションが必要なカラムを含むことを検証
func TestMigrationsFS_UsersTableShape(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_create_users.up.sql")
	if err != nil {
		t.Fatalf("failed to read users migration: %v", err)
	}
	script := string(data)

	for _, column := range []string{"id", "email", "name", "is_deleted", "deleted_at", "created_at", "updated_at"} {
		if !strings.Contains(script, column) {
			t.Errorf("users migration should define column %q", column)
		}
	}

	// 有効ユーザー間のメール一意性は部分ユニークインデックスで保証される
	if !strings.Contains(script, "WHERE NOT is_deleted") {
		t.Error("users migration should create a partial unique index on active emails")
	}
}
