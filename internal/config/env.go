package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the appropriate .env file.
// Missing files are not fatal; deployed environments inject variables
// directly.
func LoadEnv() error {
	envName := os.Getenv("ENV")
	if envName == "" {
		envName = "development"
	}

	envFile := fmt.Sprintf(".env.%s", envName)
	if err := godotenv.Load(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error loading env file %s: %w", envFile, err)
	}

	return nil
}
