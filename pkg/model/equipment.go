package model

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentRetired     EquipmentStatus = "retired"
)

// Equipment is owned by the catalog; reservations only read it.
// DailyRate is expressed in the currency's minor units.
type Equipment struct {
	ID        string          `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string          `json:"name" bson:"name"`
	Status    EquipmentStatus `json:"status" bson:"status"`
	DailyRate int64           `json:"daily_rate" bson:"daily_rate"`
	Currency  string          `json:"currency,omitempty" bson:"currency,omitempty"`
}

func (e *Equipment) IsAvailable() bool {
	return e.Status == EquipmentAvailable
}

type Availability struct {
	EquipmentID string `json:"equipment_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Available   bool   `json:"available"`
}
