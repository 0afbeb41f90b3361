package config

import (
	"flag"
	"os"
)

var (
	RunAddress          string
	DatabaseURI         string
	LogLevel            string
	JWTSecret           string
	WebhookSecret       string
	EnforceSignature    bool
	CheckoutPublicKey   string
	CheckoutEnvironment string
)

func ParseFlags() {

	flag.StringVar(&RunAddress, "a", ":8080", "address to run server")
	flag.StringVar(&DatabaseURI, "d", "", "database uri")
	flag.StringVar(&LogLevel, "l", "info", "log level")
	flag.StringVar(&JWTSecret, "j", "your-secret-key", "jwt signing secret")
	flag.StringVar(&WebhookSecret, "w", "", "payment webhook shared secret")
	flag.BoolVar(&EnforceSignature, "e", false, "reject webhooks with an invalid signature")
	flag.StringVar(&CheckoutPublicKey, "k", "", "checkout widget public key")
	flag.StringVar(&CheckoutEnvironment, "m", "sandbox", "checkout widget environment")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		RunAddress = envRunAddr
	}
	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		DatabaseURI = databaseURI
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		LogLevel = logLevel
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		JWTSecret = jwtSecret
	}
	if webhookSecret := os.Getenv("WEBHOOK_SECRET"); webhookSecret != "" {
		WebhookSecret = webhookSecret
	}
	if enforce := os.Getenv("WEBHOOK_ENFORCE_SIGNATURE"); enforce == "true" || enforce == "1" {
		EnforceSignature = true
	}
	if publicKey := os.Getenv("CHECKOUT_PUBLIC_KEY"); publicKey != "" {
		CheckoutPublicKey = publicKey
	}
	if environment := os.Getenv("CHECKOUT_ENVIRONMENT"); environment != "" {
		CheckoutEnvironment = environment
	}
}
