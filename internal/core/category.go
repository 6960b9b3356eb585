package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category is an open label with a curated set of known values.
// Anything outside the known set is a custom category.
type Category string

const (
	CategoryFood          Category = "Comida"
	CategoryTransport     Category = "Transporte"
	CategoryEntertainment Category = "Entretenimiento"
	CategoryUtilities     Category = "Servicios"
	CategoryHealth        Category = "Salud"
	CategoryEducation     Category = "Educación"
	CategoryHome          Category = "Hogar"
	CategoryOther         Category = "Otros"

	CategorySalary      Category = "Trabajo"
	CategoryFreelance   Category = "Freelance"
	CategoryInvestments Category = "Inversiones"
	CategoryGift        Category = "Regalo"
)

var (
	expenseCategories = []Category{
		CategoryFood, CategoryTransport, CategoryEntertainment, CategoryUtilities,
		CategoryHealth, CategoryEducation, CategoryHome, CategoryOther,
	}
	receivableCategories = []Category{
		CategorySalary, CategoryFreelance, CategoryInvestments, CategoryGift, CategoryOther,
	}
)

// NewCategory trims the label; an empty result is still returned so the
// caller can report it.
func NewCategory(s string) Category {
	return Category(strings.TrimSpace(s))
}

func (c Category) String() string { return string(c) }

func (c Category) IsEmpty() bool { return strings.TrimSpace(string(c)) == "" }

// IsKnown reports whether c belongs to the curated suggestion set of kind.
func (c Category) IsKnown(kind RecordKind) bool {
	for _, k := range Categories(kind) {
		if k == c {
			return true
		}
	}
	return false
}

// Categories returns the curated suggestion set for kind.
func Categories(kind RecordKind) []Category {
	switch kind {
	case KindReceivable:
		return append([]Category(nil), receivableCategories...)
	default:
		return append([]Category(nil), expenseCategories...)
	}
}

// DefaultBudgets are seeded when no budgets have been persisted yet.
func DefaultBudgets() []Budget {
	return []Budget{
		{Category: CategoryFood, Limit: decimal.NewFromInt(500)},
		{Category: CategoryTransport, Limit: decimal.NewFromInt(300)},
		{Category: CategoryEntertainment, Limit: decimal.NewFromInt(200)},
	}
}
