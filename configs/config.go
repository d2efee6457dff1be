package config

import "os"

type Config struct {
	PostgresURI         string
	RedisURI            string
	FrontendURL         string
	SecretKey           string
	CookieName          string
	InstagramAPIBaseURL string
	FacebookAPIBaseURL  string
	LinkedinAPIBaseURL  string
	TiktokAPIBaseURL    string
	GoogleClientID      string
	GoogleClientSecret  string
	SlackToken          string
	SlackAlertChannel   string
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", "127.0.0.1:6379"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:           getEnv("SECRET_KEY", ""),
		CookieName:          getEnv("COOKIE_NAME", "postwave_session"),
		InstagramAPIBaseURL: getEnv("INSTAGRAM_API_BASE_URL", "https://graph.instagram.com"),
		FacebookAPIBaseURL:  getEnv("FACEBOOK_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		LinkedinAPIBaseURL:  getEnv("LINKEDIN_API_BASE_URL", "https://api.linkedin.com/v2"),
		TiktokAPIBaseURL:    getEnv("TIKTOK_API_BASE_URL", "https://open.tiktokapis.com/v2"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		SlackToken:          getEnv("SLACK_TOKEN", ""),
		SlackAlertChannel:   getEnv("SLACK_ALERT_CHANNEL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
