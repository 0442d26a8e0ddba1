package domain

// Contact identifies the customer who requested a quote.
type Contact struct {
	Name    string `json:"name" bson:"name"`
	Email   string `json:"email" bson:"email"`
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Company string `json:"company,omitempty" bson:"company,omitempty"`
}

type Location struct {
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zip_code,omitempty"`
	Country string `json:"country" bson:"country"`
}

// Party is a shipment sender or recipient.
type Party struct {
	Name     string `json:"name" bson:"name"`
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	Location `bson:",inline"`
}

type Dimensions struct {
	Length float64 `json:"length" bson:"length"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Package is shared by quotes and shipments. Weight in kg, dimensions in cm.
type Package struct {
	Weight        float64    `json:"weight" bson:"weight"`
	Dimensions    Dimensions `json:"dimensions" bson:"dimensions"`
	DeclaredValue Money      `json:"declaredValue" bson:"declared_value"`
	Description   string     `json:"description,omitempty" bson:"description,omitempty"`
	Fragile       bool       `json:"fragile" bson:"fragile"`
	Hazardous     bool       `json:"hazardous" bson:"hazardous"`
}

type Driver struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Vehicle string `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
}
