package maps

// LookupRequest represents the query parameters from the intake form.
type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=10"`
}

// AddressSuggestion is the normalized data returned to the intake form.
type AddressSuggestion struct {
	Label       string  `json:"label"`
	Street      string  `json:"street"`
	HouseNumber string  `json:"houseNumber"`
	ZipCode     string  `json:"zipCode"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

type nominatimAddress struct {
	Road         string `json:"road"`
	HouseNumber  string `json:"house_number"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	Hamlet       string `json:"hamlet"`
	State        string `json:"state"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
