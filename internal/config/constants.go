package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./cardforge.db"

	// DefaultMaxFileSize caps uploaded card files (10 MiB)
	DefaultMaxFileSize = 10 << 20
)

// AI providers understood by the gateway factory.
const (
	AIProviderNone   = "none"
	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
)
