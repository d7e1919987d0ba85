package catalog

import "github.com/shopspring/decimal"

// DefaultProducts is the starter catalog used by dev deployments and tests.
func DefaultProducts() []Product {
	return []Product{
		{
			ID:          "p1",
			Name:        "Aurora Desk Lamp",
			Description: "Warm-light desk lamp with a weighted walnut base and touch dimmer.",
			Price:       decimal.NewFromInt(500),
			Category:    "Home",
			Image:       "/images/aurora-desk-lamp.jpg",
			Featured:    true,
		},
		{
			ID:          "p2",
			Name:        "Meridian Mechanical Keyboard",
			Description: "Tenkeyless board with hot-swap switches and PBT keycaps.",
			Price:       decimal.NewFromInt(1200),
			Category:    "Electronics",
			Image:       "/images/meridian-keyboard.jpg",
			Featured:    true,
		},
		{
			ID:          "p3",
			Name:        "Cascade Pour-Over Kettle",
			Description: "Gooseneck kettle with precise flow control, 0.9 litre.",
			Price:       decimal.NewFromInt(850),
			Category:    "Kitchen",
			Image:       "/images/cascade-kettle.jpg",
		},
		{
			ID:          "p4",
			Name:        "Sierra Canvas Backpack",
			Description: "Water-resistant 22L daypack with a padded laptop sleeve.",
			Price:       decimal.NewFromInt(1450),
			Category:    "Travel",
			Image:       "/images/sierra-backpack.jpg",
		},
		{
			ID:          "p5",
			Name:        "Drift Ceramic Mug Set",
			Description: "Set of four stoneware mugs, dishwasher and microwave safe.",
			Price:       decimal.NewFromInt(620),
			Category:    "Kitchen",
			Image:       "/images/drift-mug-set.jpg",
		},
		{
			ID:          "p6",
			Name:        "Halcyon Noise-Cancelling Headphones",
			Description: "Over-ear wireless headphones with 30-hour battery life.",
			Price:       decimal.NewFromInt(2400),
			Category:    "Electronics",
			Image:       "/images/halcyon-headphones.jpg",
			Featured:    true,
		},
	}
}
