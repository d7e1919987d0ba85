package types

// Address is the shipping-address snapshot captured at checkout. Orders keep
// their own copy so later profile edits never rewrite history.
type Address struct {
	Name       string `json:"name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Line1      string `json:"address" validate:"required,min=5"`
	City       string `json:"city" validate:"required,min=2"`
	PostalCode string `json:"postalCode" validate:"required,min=3"`
	Country    string `json:"country" validate:"required,min=2"`
}
