package point

import (
	"fmt"
	"time"
)

// SystemAuthor marks points seeded by the platform rather than a viewer.
const SystemAuthor = "system"

type Category string

const (
	CategoryBattery      Category = "battery"
	CategoryGlass        Category = "glass"
	CategoryPlastic      Category = "plastic"
	CategoryPaper        Category = "paper"
	CategoryElectronics  Category = "electronics"
	CategoryMetal        Category = "metal"
	CategoryTextile      Category = "textile"
	CategoryOrganic      Category = "organic"
	CategoryConstruction Category = "construction"
	CategoryOil          Category = "oil"
	CategoryWood         Category = "wood"
	CategoryMedical      Category = "medical"
	CategoryTire         Category = "tire"
	CategoryFurniture    Category = "furniture"
	CategoryPaint        Category = "paint"
	CategoryAppliance    Category = "appliance"
	CategoryComposite    Category = "composite"
	CategoryOther        Category = "other"
)

var Categories = []Category{
	CategoryBattery, CategoryGlass, CategoryPlastic, CategoryPaper,
	CategoryElectronics, CategoryMetal, CategoryTextile, CategoryOrganic,
	CategoryConstruction, CategoryOil, CategoryWood, CategoryMedical,
	CategoryTire, CategoryFurniture, CategoryPaint, CategoryAppliance,
	CategoryComposite, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type RecyclingPoint struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Verified    bool      `json:"verified"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p RecyclingPoint) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// Metadata holds the fields an edit may change. Coordinates are set at
// creation and never updated afterwards.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

func (m Metadata) Validate() error {
	if m.Title == "" {
		return ValidationError{Field: "title", Reason: "required"}
	}
	if !m.Category.Valid() {
		return ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", m.Category)}
	}
	return nil
}

func ValidateCoordinate(c Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return ValidationError{Field: "lat", Reason: "must be within [-90, 90]"}
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ValidationError{Field: "lng", Reason: "must be within [-180, 180]"}
	}
	return nil
}
