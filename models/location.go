package models

import (
	"encoding/json"

	"github.com/juju/errors"

	"home-services-server/utils"
)

// Location is a geographic point with an optional postal address. It is
// exchanged as a GeoJSON point: {"type":"Point","coordinates":[lng,lat]}.
type Location struct {
	Lng     float64 `gorm:"column:lng"`
	Lat     float64 `gorm:"column:lat"`
	Address string  `gorm:"column:address;size:500"`
	City    string  `gorm:"column:city;size:100"`
	State   string  `gorm:"column:state;size:100"`
}

type locationJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{
		Type:        "Point",
		Coordinates: []float64{l.Lng, l.Lat},
		Address:     l.Address,
		City:        l.City,
		State:       l.State,
	})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != "Point" {
		return errors.NotValidf("location type %q", raw.Type)
	}
	if len(raw.Coordinates) != 2 {
		return errors.NotValidf("location coordinates %v", raw.Coordinates)
	}
	if !utils.IsLocationValid(raw.Coordinates[1], raw.Coordinates[0]) {
		return errors.NotValidf("location coordinates %v", raw.Coordinates)
	}
	*l = Location{
		Lng:     raw.Coordinates[0],
		Lat:     raw.Coordinates[1],
		Address: raw.Address,
		City:    raw.City,
		State:   raw.State,
	}
	return nil
}
