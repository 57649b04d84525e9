package main

import (
	"testing"

	"snapfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	types, err := parseCatalog([]byte(`
slices:
  user: [logout, " signInStart "]
  userPost:
    - clearError
    - ""
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"user/logout", "user/signInStart", "userPost/clearError"}, types)

	_, err = parseCatalog([]byte(`paths: {}`))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	missing, unlisted := compare(
		[]string{"user/logout", "user/gone"},
		[]string{"user/logout", "user/new"},
	)
	assert.Equal(t, []string{"user/gone"}, missing)
	assert.Equal(t, []string{"user/new"}, unlisted)
}

func TestRepositoryCatalogMatchesBuild(t *testing.T) {
	expected, err := loadCatalog("../../intents.yml")
	require.NoError(t, err)

	missing, unlisted := compare(expected, store.IntentTypes())
	assert.Empty(t, missing)
	assert.Empty(t, unlisted)
}
