package model

// Label is a named, colored label on the target repository.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DefaultLabelColor is used for labels created on demand.
const DefaultLabelColor = "000000"
