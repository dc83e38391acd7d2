package models

import "os"

type EnvConfig struct {
	DatabaseURL string
	Port        string
	SessionKey  []byte
	Debug       bool
}

func ReadEnvConfig() EnvConfig {
	port := os.Getenv("COMMUNE_PORT")
	if port == "" {
		port = "8080"
	}
	return EnvConfig{
		DatabaseURL: os.Getenv("COMMUNE_DATABASE_URL"),
		Port:        port,
		SessionKey:  []byte(os.Getenv("COMMUNE_SESSION_KEY")),
		Debug:       os.Getenv("COMMUNE_DEBUG") == "true",
	}
}
