package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAssetSymbols(t *testing.T) {
	tests := []struct {
		company string
		class   ShareClass
		common  string
	}{
		{"PETR", CommonShare, "PETR3"},
		{"PETR", PreferredShare, "PETR4"},
		{"USIM", PreferredClassA, "USIM5"},
		{"ELET", PreferredClassB, "ELET6"},
		{"TAEE", Units, "TAEE11"},
	}

	for _, tt := range tests {
		t.Run(tt.common, func(t *testing.T) {
			asset := NewCommonAsset(tt.company, tt.class)
			assert.Equal(t, tt.common, asset.Symbol)
			assert.Equal(t, CommonMarket, asset.Market)
			assert.True(t, asset.IsParent())

			fractional := NewFractionalAsset(asset)
			assert.Equal(t, tt.common+"F", fractional.Symbol)
			assert.Equal(t, FractionalMarket, fractional.Market)
			assert.Equal(t, tt.common, fractional.Parent)
			assert.False(t, fractional.IsParent())
		})
	}
}

func TestMarketTypeValidQuantity(t *testing.T) {
	assert.True(t, CommonMarket.ValidQuantity(100))
	assert.True(t, CommonMarket.ValidQuantity(1500))
	assert.False(t, CommonMarket.ValidQuantity(150))
	assert.False(t, CommonMarket.ValidQuantity(99))

	assert.True(t, FractionalMarket.ValidQuantity(1))
	assert.True(t, FractionalMarket.ValidQuantity(99))
	assert.False(t, FractionalMarket.ValidQuantity(100))
	assert.False(t, FractionalMarket.ValidQuantity(150))
}

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog(
		Company{Symbol: "PETR", ShareClasses: []ShareClass{CommonShare, PreferredShare}},
		Company{Symbol: "TAEE", ShareClasses: []ShareClass{Units}},
	)
	require.NoError(t, err)

	var symbols []string
	for _, asset := range catalog.Assets() {
		symbols = append(symbols, asset.Symbol)
	}
	// Units have no fractional market.
	assert.Equal(t, []string{"PETR3", "PETR3F", "PETR4", "PETR4F", "TAEE11"}, symbols)

	fractional, ok := catalog.Lookup("PETR4F")
	require.True(t, ok)
	parent, err := catalog.Parent(fractional)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", parent.Symbol)

	_, ok = catalog.Lookup("TAEE11F")
	assert.False(t, ok)

	_, err = catalog.Parent(Asset{Symbol: "VALE3F", Parent: "VALE3"})
	assert.ErrorIs(t, err, ErrUnknownAsset)

	assert.Len(t, catalog.Companies(), 2)
}

func TestNewCatalog_Errors(t *testing.T) {
	_, err := NewCatalog(Company{ShareClasses: []ShareClass{CommonShare}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewCatalog(Company{Symbol: "PETR"}, Company{Symbol: "PETR"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewCatalog(Company{Symbol: "PETR", ShareClasses: []ShareClass{ShareClass(42)}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDefaultCompanies(t *testing.T) {
	catalog, err := NewCatalog(DefaultCompanies()...)
	require.NoError(t, err)

	for _, symbol := range []string{"PETR4", "PETR4F", "VALE3", "VALE3F"} {
		_, ok := catalog.Lookup(symbol)
		assert.True(t, ok, symbol)
	}
}

func TestShareClassYAML(t *testing.T) {
	var company Company
	err := yaml.Unmarshal([]byte(`
symbol: PETR
name: Petrobras
share_classes: [COMMON, PREFERRED]
`), &company)
	require.NoError(t, err)
	assert.Equal(t, []ShareClass{CommonShare, PreferredShare}, company.ShareClasses)

	out, err := yaml.Marshal(company)
	require.NoError(t, err)
	assert.Contains(t, string(out), "- PREFERRED")

	err = yaml.Unmarshal([]byte(`share_classes: [GOLDEN]`), &company)
	assert.Error(t, err)
}

func TestSide(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
	assert.False(t, Side(9).Valid())
	assert.Equal(t, "Side(9)", Side(9).String())
}

func TestOfferStatusTraded(t *testing.T) {
	assert.False(t, Open.Traded())
	assert.True(t, PartiallyExecuted.Traded())
	assert.True(t, Executed.Traded())
}
