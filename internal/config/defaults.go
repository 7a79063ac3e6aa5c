package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 160
	}
	if cfg.Export.SQLitePath == "" {
		cfg.Export.SQLitePath = "/usr/local/var/compendium/exports/snapshots.db"
	}
	if cfg.Export.InventoryPath == "" {
		cfg.Export.InventoryPath = "/usr/local/var/compendium/exports/inventory.xlsx"
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".yaml", ".yml"}
	}
	// Token index defaults to enabled when unset (nil).
	if cfg.Search.TokenIndex == nil {
		t := true
		cfg.Search.TokenIndex = &t
	}
}
