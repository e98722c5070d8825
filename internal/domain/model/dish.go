package model

// Dish is a menu item served by one of the external providers. The catalog
// itself is an external collaborator; this is the shape we consume.
type Dish struct {
	ID         string
	Name       string
	PriceCents int64
	Provider   string
	Available  bool
}
