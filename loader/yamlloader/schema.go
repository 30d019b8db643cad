package yamlloader

// libraryFile is the on-disk shape of one library definition file.
type libraryFile struct {
	Atomics    []atomicDef    `yaml:"atomics"`
	Composites []compositeDef `yaml:"composites"`
}

type triggerDef struct {
	Keywords            []string `yaml:"keywords,omitempty"`
	FilePatterns        []string `yaml:"file_patterns,omitempty"`
	ContextPatterns     []string `yaml:"context_patterns,omitempty"`
	AntiPatterns        []string `yaml:"anti_patterns,omitempty"`
	ConfidenceThreshold *float64 `yaml:"confidence_threshold,omitempty"`
}

type atomicDef struct {
	ID             string                 `yaml:"id"`
	Title          string                 `yaml:"title"`
	Priority       float64                `yaml:"priority"`
	Triggers       triggerDef             `yaml:"triggers"`
	Reminders      []string               `yaml:"reminders"`
	SequenceOrder  *int                   `yaml:"sequence_order,omitempty"`
	HierarchyLevel *int                   `yaml:"hierarchy_level,omitempty"`
	Metadata       map[string]interface{} `yaml:"metadata,omitempty"`
}

type referenceDef struct {
	ID             string                 `yaml:"id"`
	SequenceOrder  *int                   `yaml:"sequence_order,omitempty"`
	HierarchyLevel *int                   `yaml:"hierarchy_level,omitempty"`
	Metadata       map[string]interface{} `yaml:"metadata,omitempty"`
}

type compositeDef struct {
	ID               string                 `yaml:"id"`
	Title            string                 `yaml:"title"`
	Priority         float64                `yaml:"priority"`
	Triggers         triggerDef             `yaml:"triggers"`
	CompositionType  string                 `yaml:"composition_type"`
	References       []referenceDef         `yaml:"references"`
	Reminders        []string               `yaml:"reminders,omitempty"`
	CompositionRules map[string]interface{} `yaml:"composition_rules,omitempty"`
}
