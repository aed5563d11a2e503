package models

// Address is the decomposed shape shared by postcode lookup and reverse
// geocoding. Fields the upstream API does not know (street, building number)
// stay empty and are filled in by the user.
type Address struct {
	Line1      string  `json:"line1,omitempty"`
	Street     string  `json:"street,omitempty"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
}
