package entities

// Restaurant is the venue a booking belongs to; only its display name is used here.
type Restaurant struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	ConceptID string `json:"concept,omitempty" db:"concept_id"`
}
