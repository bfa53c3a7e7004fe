package model

// Metadata is a free-form name/value pair attached to an issue, taken from
// the detail page side table or from embedded description tags.
type Metadata struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MetadataList is an ordered set of metadata keyed by name.
type MetadataList []Metadata

// Set records value under name. An existing entry keeps its position and
// takes the new value; a new name is appended.
func (l *MetadataList) Set(name, value string) {
	for i := range *l {
		if (*l)[i].Name == name {
			(*l)[i].Value = value
			return
		}
	}
	*l = append(*l, Metadata{Name: name, Value: value})
}

// Get returns the value stored under name.
func (l MetadataList) Get(name string) (string, bool) {
	for _, m := range l {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}
