package file

// Config holds settings for the JSON file backend
type Config struct {
	// Path is the location of the state document
	Path string
}

// DefaultConfig returns sensible defaults for the file backend
func DefaultConfig() Config {
	return Config{
		Path: "automation-state.json",
	}
}
