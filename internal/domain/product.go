package domain

// Unit is a normalized quantity unit
type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMillilitre Unit = "ml"
	UnitLitre      Unit = "l"
	UnitPiece      Unit = "unit"
)

// Dimension groups units that can be compared numerically
type Dimension int

const (
	DimensionNone Dimension = iota
	DimensionMass
	DimensionVolume
	DimensionCount
)

// Dimension returns the physical dimension the unit measures
func (u Unit) Dimension() Dimension {
	switch u {
	case UnitGram, UnitKilogram:
		return DimensionMass
	case UnitMillilitre, UnitLitre:
		return DimensionVolume
	case UnitPiece:
		return DimensionCount
	}
	return DimensionNone
}

// Base returns the smallest unit of the same dimension and the factor to convert into it
func (u Unit) Base() (Unit, float64) {
	switch u {
	case UnitKilogram:
		return UnitGram, 1000
	case UnitLitre:
		return UnitMillilitre, 1000
	}
	return u, 1
}

// CanonicalRecord is a provider-agnostic, unit-normalized listing.
// Price is nil only when Available is false. QuantityAmount is always
// expressed in the base unit of its dimension (g, ml or unit).
type CanonicalRecord struct {
	Provider       ProviderID `json:"provider"`
	Name           string     `json:"name"`
	QuantityAmount *float64   `json:"quantityAmount"`
	QuantityUnit   *Unit      `json:"quantityUnit"`
	Price          *float64   `json:"price"`
	OriginalPrice  *float64   `json:"originalPrice"`
	Available      bool       `json:"available"`
	Link           string     `json:"link"`
	Image          *string    `json:"image"`
	DeliveryTime   string     `json:"deliveryTime,omitempty"`
}

// HasQuantity reports whether both amount and unit were extracted
func (r *CanonicalRecord) HasQuantity() bool {
	return r.QuantityAmount != nil && r.QuantityUnit != nil
}

// MatchCluster holds at most one record per provider believed to be the same product.
// Representative is the provider whose record seeded the cluster.
type MatchCluster struct {
	Representative ProviderID
	Records        map[ProviderID]*CanonicalRecord
}

// Seed returns the record that seeded the cluster
func (c *MatchCluster) Seed() *CanonicalRecord {
	return c.Records[c.Representative]
}

// ComparisonRow is the per-product, per-provider summary returned to callers.
// Providers always has a key for every known provider; a nil entry marks the
// provider as not carrying the product.
type ComparisonRow struct {
	DisplayName  string                           `json:"name"`
	Providers    map[ProviderID]*CanonicalRecord `json:"providers"`
	BestPrice    *float64                         `json:"bestPrice"`
	BestProvider *ProviderID                      `json:"bestProvider"`
}

// Entry returns the record for provider p, or nil when the provider is absent
func (r *ComparisonRow) Entry(p ProviderID) *CanonicalRecord {
	return r.Providers[p]
}

// Location is a pincode resolved to coordinates
type Location struct {
	Pincode   string  `json:"pincode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ProviderStatus describes how a provider's fetch went for one search
type ProviderStatus string

const (
	ProviderStatusOK       ProviderStatus = "ok"
	ProviderStatusEmpty    ProviderStatus = "empty"
	ProviderStatusFailed   ProviderStatus = "failed"
	ProviderStatusDisabled ProviderStatus = "disabled"
)

// SearchRequest represents a price comparison search request
type SearchRequest struct {
	Query   string `json:"query" binding:"required"`
	Pincode string `json:"pincode" binding:"required"`
}

// CompareRequest carries raw provider listings supplied directly by the caller
type CompareRequest struct {
	Providers map[ProviderID][]RawRecord `json:"providers"`
}

// ComparisonResult is the response of a full search
type ComparisonResult struct {
	Query     string                        `json:"query"`
	Location  *Location                     `json:"location,omitempty"`
	Providers map[ProviderID]ProviderStatus `json:"providerStatus"`
	Rows      []ComparisonRow               `json:"results"`
}
