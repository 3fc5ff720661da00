package config

import "github.com/joho/godotenv"

// LoadDotEnv reads .env files into the process environment.
// Existing env vars take precedence. With no paths it reads ./.env.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
