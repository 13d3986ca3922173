package filterexpr

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

func TestValidate(t *testing.T) {
	good := []string{
		"failed",
		"status:failed",
		"gallery & !local",
		"status:failed | target:db-01",
		"(status:failed | status:interrupted) & profile:gallery",
		"!(local | staging)",
	}
	for _, expr := range good {
		if err := Validate(expr); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", expr, err)
		}
	}

	bad := []string{
		"bad term with spaces",
		"unknown:value",
		"status:",
		"status:bad;drop",
	}
	for _, expr := range bad {
		if err := Validate(expr); err == nil {
			t.Errorf("Validate(%q) = nil, want error", expr)
		}
	}
}

// The rendering test asserts the SQL the parsed expression produces without
// executing it. The in-memory SQLite connection only hands bun a dialect;
// no statement ever runs.
func TestQueryBuilderRendering(t *testing.T) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqldb.Close()
	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	defer bdb.Close()

	cases := []struct {
		expr string
		want []string
	}{
		{"failed", []string{"LOWER(profile) LIKE", "LOWER(status) LIKE", "%failed%"}},
		{"status:failed", []string{"LOWER(COALESCE(status, ''))", "LIKE", "%failed%"}},
		{"!status:ok", []string{"NOT LIKE", "%ok%"}},
		{"gallery & !local", []string{"%gallery%", "NOT", "%local%", "AND"}},
		{"status:failed | target:db-01", []string{"OR", "%failed%", "%db-01%"}},
	}
	for _, c := range cases {
		t.Run(c.expr, func(t *testing.T) {
			sel := bdb.NewSelect()
			if _, err := parseExpr(c.expr, sel.QueryBuilder(), true, false); err != nil {
				t.Fatalf("parseExpr(%q): %v", c.expr, err)
			}
			rendered := sel.String()
			for _, want := range c.want {
				if !strings.Contains(rendered, want) {
					t.Errorf("SQL for %q is missing %q:\n%s", c.expr, want, rendered)
				}
			}
		})
	}
}

func TestQueryBuilderRejectsInvalidExpressions(t *testing.T) {
	if _, err := QueryBuilder("bad term with spaces"); err == nil {
		t.Fatal("expected QueryBuilder to reject an invalid expression")
	}
}

func TestSplitTopLevel(t *testing.T) {
	parts := splitTopLevel("a&(b&c)&d", '&')
	if len(parts) != 3 || parts[0] != "a" || parts[1] != "(b&c)" || parts[2] != "d" {
		t.Fatalf("unexpected split: %#v", parts)
	}
	if parts := splitTopLevel("plain", '&'); len(parts) != 1 || parts[0] != "plain" {
		t.Fatalf("expected a single part, got %#v", parts)
	}
}
