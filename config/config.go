// Package config names the viper keys and loads the config file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Viper keys. Flags and environment variables bind onto these.
const (
	KeyGeminiAPIKey     = "gemini_api_key"
	KeyDeepSeekAPIKey   = "deepseek_api_key"
	KeyElevenLabsAPIKey = "elevenlabs_api_key"
	KeyElevenLabsVoice  = "elevenlabs_voice_id"
	KeyDBPath           = "db_path"
	KeyWebPort          = "web_port"
)

func SetDefaults() {
	viper.SetDefault(KeyDBPath, "./parlo.db")
	viper.SetDefault(KeyWebPort, 8080)
	viper.SetDefault(KeyElevenLabsVoice, "pKLLpypGseGMUjkb5fEZ")
}

// Load reads config.yaml from the working directory, if present, and
// enables environment overrides. A missing file is not an error.
func Load() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}
