package store

// Settings holds the project's world-building documents: characters, world
// entries and plot points. The store round-trips them as YAML files in the
// metadata area; it never interprets their contents.
type Settings struct {
	Characters []CharacterProfile `json:"characters" yaml:"characters"`
	World      []WorldSetting     `json:"world" yaml:"world"`
	PlotPoints []PlotPoint        `json:"plot_points" yaml:"plot_points"`
}

// CharacterProfile describes a character.
type CharacterProfile struct {
	Name          string            `json:"name" yaml:"name"`
	Age           int               `json:"age,omitempty" yaml:"age,omitempty"`
	Appearance    string            `json:"appearance,omitempty" yaml:"appearance,omitempty"`
	Personality   string            `json:"personality,omitempty" yaml:"personality,omitempty"`
	Background    string            `json:"background,omitempty" yaml:"background,omitempty"`
	Goals         string            `json:"goals,omitempty" yaml:"goals,omitempty"`
	Relationships map[string]string `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// WorldSetting describes one aspect of the story world, e.g. a magic system
// or a region, with the rules that constrain it.
type WorldSetting struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Rules       []string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// PlotPoint is one beat of the story structure, optionally tied to chapters.
type PlotPoint struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	ChapterIDs  []ChapterID `json:"chapter_ids,omitempty" yaml:"chapter_ids,omitempty"`
	Order       int         `json:"order" yaml:"order"`
}
