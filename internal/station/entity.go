package station

import "time"

type Type string

const (
	TypeAmbulatory Type = "Ambulatory"
	TypePortable   Type = "Portable"
	TypeBedside    Type = "Bedside"
	TypeReading    Type = "Reading"
)

type Status string

const (
	StatusAvailable   Status = "Available"
	StatusInUse       Status = "In Use"
	StatusMaintenance Status = "Maintenance"
	StatusRetired     Status = "Retired"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAmbulatory, TypePortable, TypeBedside, TypeReading:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// Station is one EEG acquisition or reading computer in the inventory.
type Station struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Type      Type      `yaml:"type" json:"type"`
	Location  string    `yaml:"location" json:"location"`
	AssetTag  string    `yaml:"asset_tag" json:"assetTag"`
	Status    Status    `yaml:"status" json:"status"`
	Notes     string    `yaml:"notes" json:"notes"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}
