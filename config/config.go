package config

// Config holds everything the application needs to reach its collaborators
// and lay out local storage.
type Config struct {
	// Query engine (the remote natural-language answering service).
	QueryServiceURL string `json:"queryServiceUrl"`

	// LLM used for insight generation and export reformatting.
	LLMProvider string `json:"llmProvider"`
	APIKey      string `json:"apiKey"`
	BaseURL     string `json:"baseUrl"`
	ModelName   string `json:"modelName"`
	MaxTokens   int    `json:"maxTokens"`

	// HTTP server.
	ListenAddr string `json:"listenAddr"`

	// Local storage root; defaults to ~/AssetEdge when empty.
	StorageDir string `json:"storageDir"`

	// Timeout in seconds applied to each dashboard category fetch, so an
	// abandoned endpoint degrades to an error instead of loading forever.
	DashboardTimeoutSec int `json:"dashboardTimeoutSec"`

	DetailedLog bool `json:"detailedLog"`
}

// Defaults fills zero-valued fields with usable settings.
func (c *Config) Defaults() {
	if c.QueryServiceURL == "" {
		c.QueryServiceURL = "http://localhost:5000"
	}
	if c.ModelName == "" {
		c.ModelName = "gpt-4o-mini"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DashboardTimeoutSec == 0 {
		c.DashboardTimeoutSec = 60
	}
}
