package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

type MailSender struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Email    Email    `yaml:"email"`
}

type Email struct {
	Provider       string `yaml:"provider" env:"EMAIL_PROVIDER" env-default:"smtp"`
	Host           string `yaml:"host" env:"EMAIL_HOST"`
	Port           int    `yaml:"port" env:"EMAIL_PORT" env-default:"587"`
	Username       string `yaml:"username" env:"EMAIL_USERNAME"`
	Password       string `yaml:"password" env:"EMAIL_PASSWORD"`
	From           string `yaml:"from" env:"EMAIL_FROM"`
	FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME" env-default:"Accounts"`
	SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
}

func (e Email) validate() error {
	switch e.Provider {
	case ProviderSMTP:
		if e.Host == "" {
			return fmt.Errorf("email.host is required for the smtp provider")
		}
	case ProviderSendGrid:
		if e.SendGridAPIKey == "" {
			return fmt.Errorf("email.sendgrid_api_key is required for the sendgrid provider")
		}
	default:
		return fmt.Errorf("email.provider %q is not supported", e.Provider)
	}
	return nil
}

const defaultMailSenderConfigPath = "./config/mail_sender.yaml"

// MustLoadMailSender reads the file named by CONFIG_PATH, falling back to
// ./config/mail_sender.yaml.
func MustLoadMailSender() *MailSender {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultMailSenderConfigPath
	}

	cfg, err := LoadMailSender(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func LoadMailSender(path string) (*MailSender, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg MailSender

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Email.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
