package common

import (
	"fmt"
	"sort"
	"strconv"
)

// ShareClass is the class of share a company issues, e.g. the "4" in PETR4.
type ShareClass int

const (
	CommonShare ShareClass = iota
	PreferredShare
	PreferredClassA
	PreferredClassB
	Units
)

var shareClassSuffix = map[ShareClass]int{
	CommonShare:     3,
	PreferredShare:  4,
	PreferredClassA: 5,
	PreferredClassB: 6,
	Units:           11,
}

var shareClassName = map[ShareClass]string{
	CommonShare:     "COMMON",
	PreferredShare:  "PREFERRED",
	PreferredClassA: "PREFERRED_CLASS_A",
	PreferredClassB: "PREFERRED_CLASS_B",
	Units:           "UNITS",
}

func (c ShareClass) String() string {
	if name, ok := shareClassName[c]; ok {
		return name
	}
	return "ShareClass(" + strconv.Itoa(int(c)) + ")"
}

// Suffix is the numeric part appended to the company symbol.
func (c ShareClass) Suffix() string {
	return strconv.Itoa(shareClassSuffix[c])
}

// HasFractionalMarket reports whether the class also trades in odd lots.
// Units (e.g. real estate funds) only trade on the common market.
func (c ShareClass) HasFractionalMarket() bool {
	return c != Units
}

func (c ShareClass) valid() bool {
	_, ok := shareClassSuffix[c]
	return ok
}

// MarketType decides the lot size accepted for an asset.
type MarketType int

const (
	// Common market trades in round lots, multiples of 100.
	CommonMarket MarketType = iota
	// Fractional market trades odd lots below 100 units.
	FractionalMarket
)

func (m MarketType) String() string {
	switch m {
	case CommonMarket:
		return "COMMON"
	case FractionalMarket:
		return "FRACTIONAL"
	}
	return "MarketType(" + strconv.Itoa(int(m)) + ")"
}

func (m MarketType) Suffix() string {
	if m == FractionalMarket {
		return "F"
	}
	return ""
}

// ValidQuantity reports whether quantity respects the lot size of the market.
// Zero is rejected elsewhere.
func (m MarketType) ValidQuantity(quantity uint64) bool {
	switch m {
	case CommonMarket:
		return quantity%100 == 0
	case FractionalMarket:
		return quantity < 100
	}
	return false
}

// Company is static reference data for an issuer.
type Company struct {
	Symbol       string       `yaml:"symbol"`
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description"`
	ShareClasses []ShareClass `yaml:"share_classes"`
}

// Asset is a tradable instrument. Parent holds the symbol of the common
// market asset the instrument settles under, which for a common asset is its
// own symbol.
type Asset struct {
	Symbol     string
	Company    string
	ShareClass ShareClass
	Market     MarketType
	Parent     string
}

func (a Asset) String() string {
	return a.Symbol
}

// IsParent reports whether the asset is the balance-bearing instrument.
func (a Asset) IsParent() bool {
	return a.Symbol == a.Parent
}

// Equal compares assets by symbol.
func (a Asset) Equal(other Asset) bool {
	return a.Symbol == other.Symbol
}

// NewCommonAsset derives the common market asset for a company share class.
func NewCommonAsset(company string, class ShareClass) Asset {
	symbol := company + class.Suffix() + CommonMarket.Suffix()
	return Asset{
		Symbol:     symbol,
		Company:    company,
		ShareClass: class,
		Market:     CommonMarket,
		Parent:     symbol,
	}
}

// NewFractionalAsset derives the odd lot variant of a common asset.
func NewFractionalAsset(parent Asset) Asset {
	return Asset{
		Symbol:     parent.Company + parent.ShareClass.Suffix() + FractionalMarket.Suffix(),
		Company:    parent.Company,
		ShareClass: parent.ShareClass,
		Market:     FractionalMarket,
		Parent:     parent.Symbol,
	}
}

// Catalog is the table of every asset listed on the exchange, indexed by
// symbol.
type Catalog struct {
	companies []Company
	assets    map[string]Asset
}

// NewCatalog lists a common asset for every company share class, plus the
// fractional variant where the class supports it.
func NewCatalog(companies ...Company) (*Catalog, error) {
	catalog := &Catalog{
		assets: make(map[string]Asset),
	}

	seen := make(map[string]struct{}, len(companies))
	for _, company := range companies {
		if company.Symbol == "" {
			return nil, fmt.Errorf("%w: company without symbol", ErrValidation)
		}
		if _, ok := seen[company.Symbol]; ok {
			return nil, fmt.Errorf("%w: duplicate company %s", ErrValidation, company.Symbol)
		}
		seen[company.Symbol] = struct{}{}

		for _, class := range company.ShareClasses {
			if !class.valid() {
				return nil, fmt.Errorf("%w: company %s has unknown share class %d",
					ErrValidation, company.Symbol, class)
			}
			common := NewCommonAsset(company.Symbol, class)
			catalog.assets[common.Symbol] = common
			if class.HasFractionalMarket() {
				fractional := NewFractionalAsset(common)
				catalog.assets[fractional.Symbol] = fractional
			}
		}
		catalog.companies = append(catalog.companies, company)
	}

	return catalog, nil
}

// Lookup resolves an asset by symbol.
func (c *Catalog) Lookup(symbol string) (Asset, bool) {
	asset, ok := c.assets[symbol]
	return asset, ok
}

// Parent resolves the balance-bearing asset of the given asset.
func (c *Catalog) Parent(asset Asset) (Asset, error) {
	parent, ok := c.assets[asset.Parent]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Parent)
	}
	return parent, nil
}

// Assets returns every listed asset sorted by symbol.
func (c *Catalog) Assets() []Asset {
	assets := make([]Asset, 0, len(c.assets))
	for _, asset := range c.assets {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Symbol < assets[j].Symbol
	})
	return assets
}

func (c *Catalog) Companies() []Company {
	return append([]Company(nil), c.companies...)
}

// MarshalText renders the class by name, which is how config files list them.
func (c ShareClass) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("%w: unknown share class %d", ErrValidation, int(c))
	}
	return []byte(c.String()), nil
}

func (c *ShareClass) UnmarshalText(text []byte) error {
	for class, name := range shareClassName {
		if name == string(text) {
			*c = class
			return nil
		}
	}
	return fmt.Errorf("%w: unknown share class %q", ErrValidation, text)
}
