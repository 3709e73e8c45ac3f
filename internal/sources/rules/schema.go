package rules

// TrackingConfig lists the query parameters stripped by tracking protection.
type TrackingConfig struct {
	Params   []string `yaml:"params"`
	Prefixes []string `yaml:"prefixes"`
	// ExtendDefaults merges the lists with the built-in ones. Defaults to true.
	ExtendDefaults *bool `yaml:"extend_defaults"`
}

// Config is the root structure of the rules file.
//
//	tracking:
//	  params: [ref, spm]
//	  prefixes: [utm_]
//	search_engines:
//	  duckduckgo: https://html.duckduckgo.com/html/?q=
type Config struct {
	Tracking      TrackingConfig    `yaml:"tracking"`
	SearchEngines map[string]string `yaml:"search_engines"`
}
