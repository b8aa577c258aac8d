package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEveryUpMigrationHasDown(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(FS, down); err != nil {
			t.Errorf("%s has no matching %s", up, down)
		}
	}
}

func TestContactSchemaConstraints(t *testing.T) {
	raw, err := fs.ReadFile(FS, "000001_create_contact_submissions.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	schema := string(raw)
	for _, want := range []string{
		"contact_submissions_status_check",
		"contact_submissions_priority_check",
		"email_sent    BOOLEAN       NOT NULL DEFAULT FALSE",
		"chat_sent     BOOLEAN       NOT NULL DEFAULT FALSE",
		"(created_at DESC)",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("expected schema to contain %q", want)
		}
	}
}
