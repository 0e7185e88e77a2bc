package persistence

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/welfare/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm/schema"
)

var createTablePattern = regexp.MustCompile(`(?s)CREATE TABLE (\w+) \((.*?)\n\);`)

// parseTableColumns extracts the column names declared by each CREATE TABLE
// statement in the migration DDL.
func parseTableColumns(t *testing.T, ddl string) map[string]map[string]bool {
	t.Helper()

	tables := make(map[string]map[string]bool)
	for _, match := range createTablePattern.FindAllStringSubmatch(ddl, -1) {
		columns := make(map[string]bool)
		for _, line := range strings.Split(match[2], "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			columns[strings.ToLower(fields[0])] = true
		}
		tables[match[1]] = columns
	}
	require.NotEmpty(t, tables)
	return tables
}

// Every column GORM serializes for a persistence model must exist in the
// initial schema, otherwise inserts and updates fail at runtime against a
// migrated database.
func TestInitSchemaCoversModelColumns(t *testing.T) {
	ddl, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "000001_init_schema.up.sql"))
	require.NoError(t, err)

	tables := parseTableColumns(t, string(ddl))

	for _, model := range []interface{}{
		&models.AccountModel{},
		&models.JournalEntryModel{},
		&models.JournalLineModel{},
		&models.PaymentModel{},
		&models.ContributionAllocationModel{},
		&models.PenaltyModel{},
		&models.MemberModel{},
		&models.SettingModel{},
	} {
		parsed, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)

		t.Run(parsed.Table, func(t *testing.T) {
			columns, ok := tables[parsed.Table]
			require.True(t, ok, "table %s missing from migration", parsed.Table)
			for _, name := range parsed.DBNames {
				require.True(t, columns[name], "column %s.%s missing from migration", parsed.Table, name)
			}
		})
	}
}
