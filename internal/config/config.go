// Package config provides configuration types and loading for tickvoice.
package config

// Config is the root configuration struct.
// Top-level groups: Server, Model, Providers, TickTick, Audio, Paths.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	TickTick  TickTickConfig  `json:"ticktick"`
	Audio     AudioConfig     `json:"audio"`
	Paths     PathsConfig     `json:"paths"`
}

// ServerConfig contains websocket server settings.
type ServerConfig struct {
	Host        string `json:"host" envconfig:"HOST"`
	Port        int    `json:"port" envconfig:"PORT"`
	DirectAgent bool   `json:"directAgent" envconfig:"DIRECT_AGENT"`
}

// ModelConfig groups LLM model and conversation settings.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxTurns    int     `json:"maxTurns" envconfig:"MAX_TURNS"`
}

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// TickTickConfig contains TickTick OAuth client settings.
type TickTickConfig struct {
	ClientID     string `json:"clientId" envconfig:"CLIENT_ID"`
	ClientSecret string `json:"clientSecret" envconfig:"CLIENT_SECRET"`
	CallbackPort int    `json:"callbackPort" envconfig:"CALLBACK_PORT"`
	TokenFile    string `json:"tokenFile" envconfig:"TOKEN_FILE"`
}

// AudioConfig contains audio preprocessing settings.
type AudioConfig struct {
	Dir             string `json:"dir" envconfig:"DIR"`
	TranscribeModel string `json:"transcribeModel" envconfig:"TRANSCRIBE_MODEL"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	StateDir string `json:"stateDir" envconfig:"STATE_DIR"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Model: ModelConfig{
			Name:        "anthropic/claude-3.7-sonnet",
			MaxTokens:   4096,
			Temperature: 0.7,
			MaxTurns:    20,
		},
		Providers: ProvidersConfig{
			OpenRouter: ProviderConfig{
				APIBase: "https://openrouter.ai/api/v1",
			},
		},
		TickTick: TickTickConfig{
			CallbackPort: 8080,
		},
		Audio: AudioConfig{
			Dir:             "audio_files",
			TranscribeModel: "whisper-1",
		},
	}
}
