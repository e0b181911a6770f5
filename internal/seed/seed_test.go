package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/erazemk/pisarna/internal/accounts"
	"github.com/erazemk/pisarna/internal/db"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

var opts = Options{AdminName: "Admin", AdminEmail: "admin@kantor.id", Catalog: true}

func TestEmbeddedCatalog(t *testing.T) {
	items, err := Catalog()
	require.NoError(t, err)
	require.Len(t, items, 72)
	assert.Equal(t, "ATK-001", items[0].Code)
	assert.Equal(t, "Amplop", items[0].Name)
	assert.Equal(t, "ATK-072", items[71].Code)
	assert.Equal(t, "Lemari Tinta", items[71].Location)
}

func TestRunSeedsFreshDatabase(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	res, err := Run(ctx, database, opts)
	require.NoError(t, err)
	assert.True(t, res.AdminCreated())
	assert.Len(t, res.AdminPassword, 16)
	assert.Equal(t, 72, res.ItemsInserted)

	_, err = accounts.New(database).Authenticate(ctx, "admin@kantor.id", res.AdminPassword)
	assert.NoError(t, err, "printed password must work")

	entries, err := store.ListActivity(ctx, database, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionSeed, entries[0].Action)
	assert.Equal(t, "System", entries[0].ActorName)
}

func TestRunIsOneShot(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := Run(ctx, database, opts)
	require.NoError(t, err)

	items, _ := store.ListItems(ctx, database, "")
	for _, item := range items {
		require.NoError(t, store.DeleteItem(ctx, database, item.ID))
	}

	res, err := Run(ctx, database, opts)
	require.NoError(t, err)
	assert.False(t, res.AdminCreated())
	assert.Zero(t, res.ItemsInserted, "catalog is not reloaded once seeded")

	n, _ := store.CountUsers(ctx, database)
	assert.Equal(t, 1, n)
}

func TestRunSkipsCatalogWhenItemsExist(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := store.CreateItem(ctx, database, model.Item{Code: "X-1", Name: "Existing"})
	require.NoError(t, err)

	res, err := Run(ctx, database, opts)
	require.NoError(t, err)
	assert.Zero(t, res.ItemsInserted)

	n, _ := store.CountItems(ctx, database)
	assert.Equal(t, 1, n)
}

func TestRunWithoutCatalog(t *testing.T) {
	database := db.NewTestDB(t)

	res, err := Run(context.Background(), database, Options{AdminName: "Admin", AdminEmail: "admin@kantor.id"})
	require.NoError(t, err)
	assert.Zero(t, res.ItemsInserted)
}

func TestParseCatalogReportsAllProblems(t *testing.T) {
	data := `items:
  - code: A-1
    name: Pulpen
    stock: 1
  - code: A-1
    name: ""
    stock: -4
  - name: Pensil
`
	_, err := parseCatalog([]byte(data))
	require.Error(t, err)

	errs := multierr.Errors(err)
	assert.Len(t, errs, 4)
	msg := err.Error()
	for _, want := range []string{"already used on row 1", "row 2: missing name", "negative stock -4", "row 3: missing code"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}

func TestParseCatalogRejectsUnknownFields(t *testing.T) {
	_, err := parseCatalog([]byte("items:\n  - code: A-1\n    name: Pulpen\n    colour: red\n"))
	assert.Error(t, err)
}
