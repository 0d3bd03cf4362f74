package geodata

// PlaceDefinition is a single place seed loaded from the places directory.
// One YAML file per place; the slug is derived from the filename.
type PlaceDefinition struct {
	Slug           string   `yaml:"-"`
	Name           string   `yaml:"name"`
	Country        string   `yaml:"country"`
	WikipediaTitle string   `yaml:"wikipedia_title"` // optional explicit article title
	Enabled        *bool    `yaml:"enabled"`         // defaults to true when omitted
	Tags           []string `yaml:"tags"`
}

// IsEnabled reports whether the place participates in background enrichment
func (d *PlaceDefinition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}
