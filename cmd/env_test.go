package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/config"
)

func TestCatalogSource(t *testing.T) {
	c := testConfig()

	src, err := catalogSource(c, nil)
	require.NoError(t, err)
	assert.Equal(t, "builtin", src.Name())

	c.Catalog.Source = config.SourceFile
	c.Catalog.Path = "spots.json"
	src, err = catalogSource(c, nil)
	require.NoError(t, err)
	assert.Equal(t, "file:spots.json", src.Name())

	c.Catalog.Source = config.SourceStore
	_, err = catalogSource(c, nil)
	assert.Error(t, err)

	c.Catalog.Source = "s3"
	_, err = catalogSource(c, nil)
	assert.Error(t, err)
}

func TestLoadCatalog_Builtin(t *testing.T) {
	cat, err := loadCatalog(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 12, cat.Len())
	assert.Equal(t, "builtin", cat.Source())
}

func TestLoadCatalog_EmptyStore(t *testing.T) {
	c := testConfig()
	withSQLite(t, c)
	c.Catalog.Source = config.SourceStore

	st, err := initStore(context.Background(), c, storeRequired)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = loadCatalog(context.Background(), c, st)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
}

func TestInitStore(t *testing.T) {
	c := testConfig()

	st, err := initStore(context.Background(), c, storeOptional)
	require.NoError(t, err)
	assert.Nil(t, st)

	_, err = initStore(context.Background(), c, storeRequired)
	assert.Error(t, err)

	withSQLite(t, c)
	st, err = initStore(context.Background(), c, storeRequired)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Contains(t, st.Name(), "sqlite:")
	assert.NoError(t, st.Close())
}

func TestNeedsStore(t *testing.T) {
	c := testConfig()
	assert.False(t, needsStore(c, false))
	assert.True(t, needsStore(c, true))

	c.Catalog.Source = config.SourceStore
	assert.True(t, needsStore(c, false))
}

func TestInitStore_UnusedNeverOpens(t *testing.T) {
	c := testConfig()
	path := withSQLite(t, c)

	st, err := initStore(context.Background(), c, storeUnused)
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.NoFileExists(t, path)

	st, err = initStore(context.Background(), c, storeOptional)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.NoError(t, st.Close())
	assert.FileExists(t, path)
}

func TestStoreNeedFor(t *testing.T) {
	assert.Equal(t, storeRequired, storeNeedFor(true))
	assert.Equal(t, storeUnused, storeNeedFor(false))
}
