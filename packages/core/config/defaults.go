package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		CollectionName: "Excel-driven API Tests",
		Timeout:        30000, // 30 seconds
		Concurrency:    5,
		MaxRedirects:   10,
		SnippetLength:  150,
		Correlate:      "url",
		OutputDir:      "reports",
		Reporters:      []string{"xlsx", "html", "allure"},
		Notify: Notify{
			On: "failure",
		},
		Allure: Allure{
			Command: "allure",
		},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.Workbook == d.Workbook &&
		c.Sheet == d.Sheet &&
		c.CollectionName == d.CollectionName &&
		c.Timeout == d.Timeout &&
		c.Concurrency == d.Concurrency &&
		c.Rate == d.Rate &&
		c.FollowRedirects == nil &&
		c.MaxRedirects == d.MaxRedirects &&
		c.ValidateSSL == nil &&
		c.Proxy == d.Proxy &&
		c.SnippetLength == d.SnippetLength &&
		c.Correlate == d.Correlate &&
		c.OutputDir == d.OutputDir &&
		equalStrings(c.Reporters, d.Reporters) &&
		c.History == d.History &&
		c.Notify == d.Notify &&
		c.Allure.Generate == nil &&
		c.Allure.Command == d.Allure.Command &&
		c.Verbose == nil &&
		c.NoColor == nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
