package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_KnownPacks(t *testing.T) {
	c := Default()

	for id, want := range map[string]int64{"credits_10": 10, "credits_50": 50, "credits_100": 100} {
		got, err := c.CreditsFor(id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, []string{"credits_10", "credits_50", "credits_100"}, c.IDs())
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Default().CreditsFor("credits_7")
	require.ErrorIs(t, err, common.ErrUnknownProduct)

	var upe *common.UnknownProductError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "credits_7", upe.ProductID)
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]models.Product{{ID: "", Credits: 1}})
	require.Error(t, err)

	_, err = New([]models.Product{{ID: "x", Credits: 0}})
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = New([]models.Product{{ID: "x", Credits: 1}, {ID: "x", Credits: 2}})
	require.ErrorContains(t, err, "duplicate")
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Products(), 3)

	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"pack_5","credits":5,"price":"1.99","currency":"EUR"}]`), 0o600))

	c, err = Load(path)
	require.NoError(t, err)
	p, err := c.Lookup("pack_5")
	require.NoError(t, err)
	assert.Equal(t, "EUR", p.Currency)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "failed to read product catalog")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = Load(bad)
	require.ErrorContains(t, err, "failed to parse product catalog")
}
