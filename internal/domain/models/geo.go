package models

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude], the
// order MongoDB's 2dsphere indexes expect.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// Lng returns the longitude, or 0 for an empty point.
func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Lat returns the latitude, or 0 for an empty point.
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Place is a GeoJSON point with a human-readable address, used for ride
// origins and destinations.
type Place struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
}

// Point returns the place as a bare GeoPoint.
func (p Place) Point() GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: p.Coordinates}
}
