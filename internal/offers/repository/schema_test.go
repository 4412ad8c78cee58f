package repository

import (
	"os"
	"strings"
	"testing"
)

// The repository binds several pointer fields straight into the insert,
// so pgx encodes a nil as SQL NULL. Columns DEFAULT does not rescue an
// explicit NULL; every nil-able bind must map to a nullable column.
func TestOffersSchemaAcceptsNilBinds(t *testing.T) {
	ddl := tableDDL(t, "offers")

	cases := []struct {
		column   string
		nullable bool
	}{
		{"message", true}, // CreateOfferParams.Message is *string
		{"counter_cents", true},
		{"responded_at", true},
		{"offered_cents", false},
		{"original_cents", false},
		{"status", false},
		{"expires_at", false},
	}

	for _, tc := range cases {
		line := columnLine(t, ddl, tc.column)
		notNull := strings.Contains(line, "NOT NULL")
		if tc.nullable && notNull {
			t.Errorf("offers.%s is NOT NULL but the repository binds a nil-able value into it", tc.column)
		}
		if !tc.nullable && !notNull {
			t.Errorf("offers.%s should be NOT NULL", tc.column)
		}
	}
}

func tableDDL(t *testing.T, table string) string {
	t.Helper()

	data, err := os.ReadFile("../../../migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	marker := "CREATE TABLE " + table + " ("
	start := strings.Index(string(data), marker)
	if start < 0 {
		t.Fatalf("table %s not found in migration", table)
	}
	rest := string(data)[start+len(marker):]
	end := strings.Index(rest, ");")
	if end < 0 {
		t.Fatalf("table %s definition is not terminated", table)
	}
	return rest[:end]
}

func columnLine(t *testing.T, ddl, column string) string {
	t.Helper()
	for _, line := range strings.Split(ddl, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), column+" ") {
			return line
		}
	}
	t.Fatalf("column %s not found in table definition", column)
	return ""
}
