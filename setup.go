package main

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"parlo/config"
)

func runSetup() {
	log.Info("Starting Parlo setup...")

	geminiKey := viper.GetString(config.KeyGeminiAPIKey)
	deepseekKey := viper.GetString(config.KeyDeepSeekAPIKey)
	elevenKey := viper.GetString(config.KeyElevenLabsAPIKey)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Enter your Google Cloud (Gemini) API Key").
				Value(&geminiKey),
			huh.NewInput().
				Title("Enter your DeepSeek API Key (optional, text-only fallback)").
				Value(&deepseekKey),
			huh.NewInput().
				Title("Enter your ElevenLabs API Key (optional, alternate voice)").
				Value(&elevenKey),
		),
	)

	if err := form.Run(); err != nil {
		log.Fatal("Error during setup", "error", err)
	}

	viper.Set(config.KeyGeminiAPIKey, geminiKey)
	viper.Set(config.KeyDeepSeekAPIKey, deepseekKey)
	viper.Set(config.KeyElevenLabsAPIKey, elevenKey)

	if err := viper.SafeWriteConfigAs("config.yaml"); err != nil {
		if err = viper.WriteConfigAs("config.yaml"); err != nil {
			log.Fatal("Error saving configuration", "error", err)
		}
	}

	log.Info("Setup completed successfully!")
}
