package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://u:p@db/x", Host: "ignored"},
			want: "postgres://u:p@db/x",
		},
		{
			name: "defaults port and sslmode",
			cfg:  ClientConfig{Host: "localhost", Database: "newsgap", User: "u", Password: "p"},
			want: "postgres://u:p@localhost:5432/newsgap?sslmode=disable",
		},
		{
			name: "explicit port and sslmode",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "n", User: "u", Password: "p", SSLMode: "require"},
			want: "postgres://u:p@db:6543/n?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMigrationFilesOrdered(t *testing.T) {
	names, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	want := []string{"001_dislocation_runs.sql", "002_audit_log.sql"}
	if len(names) != len(want) {
		t.Fatalf("migrationFiles() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("migrationFiles()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRunListQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := runListQuery(domain.ListOpts{Since: &since, Limit: 20, Offset: 40})

	for _, frag := range []string{"started_at >= $1", "ORDER BY started_at DESC", "LIMIT $2", "OFFSET $3"} {
		if !strings.Contains(query, frag) {
			t.Errorf("query missing %q: %s", frag, query)
		}
	}
	if len(args) != 3 {
		t.Fatalf("len(args) = %d, want 3", len(args))
	}
	if args[1] != 20 || args[2] != 40 {
		t.Errorf("args = %v, want [since 20 40]", args)
	}
}

func TestAuditListQueryEventFilter(t *testing.T) {
	query, args := auditListQuery(domain.ListOpts{Event: "scan.completed", Limit: 5})
	if !strings.Contains(query, "event = $1") || !strings.Contains(query, "LIMIT $2") {
		t.Errorf("unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != "scan.completed" {
		t.Errorf("args = %v", args)
	}

	query, args = auditListQuery(domain.ListOpts{})
	if strings.Contains(query, "LIMIT") || len(args) != 0 {
		t.Errorf("empty opts produced query %q args %v", query, args)
	}
}
