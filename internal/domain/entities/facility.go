package entities

// Facility represents a fitness facility in the catalog.
// Only public fields are carried; storage identifiers and audit timestamps
// stay inside the adapters.
type Facility struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Location  Location `json:"location"`
	Amenities []string `json:"amenities"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are within the WGS84 range.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}
