package domain

type Category string

const (
	CategoryDairy           Category = "Dairy"
	CategoryBreads          Category = "Breads"
	CategoryCereals         Category = "Cereals"
	CategoryGrains          Category = "Grains"
	CategoryPromotionCoupon Category = "PromotionCoupon"
)

func (c Category) IsPromotion() bool {
	return c == CategoryPromotionCoupon
}

// Product is the basket-side replica of a catalog item.
type Product struct {
	ID                 string   `json:"id" bson:"_id"`
	SKU                string   `json:"sku" bson:"sku"`
	Category           Category `json:"category" bson:"category"`
	Name               string   `json:"name" bson:"name"`
	Description        string   `json:"description" bson:"description"`
	Price              Money    `json:"price" bson:"price"`
	DiscountApplicable bool     `json:"discountApplicable" bson:"discount_applicable"`
	IncludeInDelivery  bool     `json:"includeInDelivery" bson:"include_in_delivery"`
}
