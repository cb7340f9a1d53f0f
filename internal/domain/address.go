package domain

type Address struct {
	Line1       string `json:"line1" bson:"line1"`
	Line2       string `json:"line2,omitempty" bson:"line2,omitempty"`
	Line3       string `json:"line3,omitempty" bson:"line3,omitempty"`
	City        string `json:"city,omitempty" bson:"city,omitempty"`
	County      string `json:"county,omitempty" bson:"county,omitempty"`
	Postcode    string `json:"postcode" bson:"postcode"`
	Country     string `json:"country,omitempty" bson:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty" bson:"country_code,omitempty"`
}

// User is the read-model replica of a user profile held by the basket and
// order sides. Only the fields needed for delivery are kept.
type User struct {
	ID                     string   `json:"id" bson:"_id"`
	FirstName              string   `json:"firstName" bson:"first_name"`
	LastName               string   `json:"lastName" bson:"last_name"`
	Email                  string   `json:"email" bson:"email"`
	PhoneNumber            string   `json:"phoneNumber,omitempty" bson:"phone_number,omitempty"`
	DefaultBillingAddress  *Address `json:"defaultBillingAddress,omitempty" bson:"default_billing_address,omitempty"`
	DefaultDeliveryAddress *Address `json:"defaultDeliveryAddress,omitempty" bson:"default_delivery_address,omitempty"`
}

// ShippingAddress is the address an order is delivered to: the default
// delivery address, else the default billing address, else nil.
func (u *User) ShippingAddress() *Address {
	if u.DefaultDeliveryAddress != nil {
		return u.DefaultDeliveryAddress
	}
	return u.DefaultBillingAddress
}
