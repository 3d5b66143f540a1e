package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Admin struct {
		Password string `yaml:"password"`
		Page     string `yaml:"page"`
	} `yaml:"admin"`
	Questions struct {
		File string `yaml:"file"`
		Bank string `yaml:"bank"`
	} `yaml:"questions"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Load reads YAML config from path. A .env file (if present) is loaded first
// and the ADMIN_PASSWORD environment variable always wins over YAML, matching
// the deployment convention of supplying the secret via process environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		cfg.Admin.Password = password
	}
	if cfg.Questions.File == "" {
		cfg.Questions.File = "questions.json"
	}
	if cfg.Admin.Page == "" {
		cfg.Admin.Page = "web/admin.html"
	}
	return cfg, nil
}
