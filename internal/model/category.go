package model

// Category is the expense category of a receipt.
type Category string

const (
	CategoryUncategorized Category = "未分類"
	CategoryFood          Category = "食費"
	CategoryTransport     Category = "交通費"
	CategoryMedical       Category = "医療費"
	CategoryCommunication Category = "通信費"
	CategoryEntertainment Category = "娯楽費"
	CategoryOther         Category = "その他"
)

// DefaultCategory is assigned when a capture supplies none.
const DefaultCategory = CategoryUncategorized

var categories = []Category{
	CategoryUncategorized,
	CategoryFood,
	CategoryTransport,
	CategoryMedical,
	CategoryCommunication,
	CategoryEntertainment,
	CategoryOther,
}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c belongs to the fixed set.
func (c Category) Valid() bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}
