package refdata

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "refdata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.db")

	store, err := Open(path)
	require.NoError(t, err)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CommodityCodes)
	assert.Equal(t, 0, stats.URLs)

	require.NoError(t, store.Close())

	// Reopening verifies the recorded schema version instead of
	// recreating the schema.
	store, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestOpenSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_version SET version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestImportCommodityCodes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"hs_code,description,code",
		`8471.30,"Portable digital computers, weighing not more than 10 kg",8471301000`,
		"'847130,Laptops including notebooks and subnotebooks,8471302000",
		"490199,Other printed books,4901990000",
		"only-two,fields",
		"ABC123,Not a numeric code,0000000000",
	}, "\n")

	result, err := store.importCommodityCodes(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 2, result.Skipped)

	matches, err := store.FindByHSCode(ctx, "847130")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "8471301000", matches[0].Code)
	assert.Contains(t, matches[0].Description, "Portable digital computers")
	assert.Equal(t, "8471302000", matches[1].Code)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CommodityCodes)
	assert.Equal(t, 2, stats.DistinctHSCodes)
}

func TestFindByHSCodeUnknown(t *testing.T) {
	store := openTestStore(t)

	matches, err := store.FindByHSCode(context.Background(), "999999")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestImportCommodityCodesEmptyInput(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	result, err := store.importCommodityCodes(ctx, strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Zero(t, result.Skipped)

	result, err = store.importCommodityCodes(ctx, strings.NewReader("hs_code,description,code\n"))
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
}

func TestImportCommodityCodesCSVFromFile(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "refdata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	csvPath := filepath.Join(dir, "commodity_code.csv")
	content := "hs_code,description,code\n010121,Pure-bred breeding horses,0101210000\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))

	result, err := store.ImportCommodityCodesCSV(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	_, err = store.ImportCommodityCodesCSV(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestImportURLs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"url",
		"https://www.wcotradetools.org/en/harmonized-system",
		"https://www.tariffnumber.com/2017",
		"https://www.wcotradetools.org/en/harmonized-system",
		"   ",
	}, "\n")

	result, err := store.importURLs(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 2, result.Skipped)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.URLs)
}
