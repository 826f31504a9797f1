package migration

import (
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/erp/warehouse/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// TestEmbeddedSchemaMatchesModels checks that every persistence model has a
// table in the embedded migrations carrying all of its columns
func TestEmbeddedSchemaMatchesModels(t *testing.T) {
	up, err := fs.ReadFile(migrations.FS, "000001_init_schema.up.sql")
	require.NoError(t, err)
	_, err = fs.Stat(migrations.FS, "000001_init_schema.down.sql")
	require.NoError(t, err)

	tables := parseCreateTables(string(up))
	cache := &sync.Map{}

	for _, model := range models.All() {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		require.NoError(t, err)

		body, ok := tables[s.Table]
		if !assert.True(t, ok, "missing CREATE TABLE for %s", s.Table) {
			continue
		}
		for _, column := range s.DBNames {
			assert.Regexp(t, `(?m)^\s+`+regexp.QuoteMeta(column)+`\s`, body, "%s.%s", s.Table, column)
		}
	}
}

func parseCreateTables(sql string) map[string]string {
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)
	out := make(map[string]string)
	for _, m := range re.FindAllStringSubmatch(sql, -1) {
		out[m[1]] = m[2]
	}
	return out
}

func TestEmbeddedDownDropsEveryTable(t *testing.T) {
	up, err := fs.ReadFile(migrations.FS, "000001_init_schema.up.sql")
	require.NoError(t, err)
	down, err := fs.ReadFile(migrations.FS, "000001_init_schema.down.sql")
	require.NoError(t, err)

	for table := range parseCreateTables(string(up)) {
		assert.True(t, strings.Contains(string(down), "DROP TABLE IF EXISTS "+table+";"), table)
	}
}
