package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	KeymapPath      string  `json:"KeymapPath"`
	WatchKeymap     bool    `json:"WatchKeymap"`
	Arpeggiate      bool    `json:"Arpeggiate"`
	Suppress        bool    `json:"Suppress"`
	StrokeLogPath   string  `json:"StrokeLogPath"`
	ForwardEndpoint string  `json:"ForwardEndpoint"`
	Token           string  `json:"Token"`
	ExtraConfig     string  `json:"ExtraConfig"`
	UndoPath        string  `json:"UndoPath"`
	RequestTimeout  int     `json:"RequestTimeout"`
	MaxRetry        int     `json:"MaxRetry"`
	RetryBaseDelay  float64 `json:"RetryBaseDelay"`
	EnableHTTP2     bool    `json:"EnableHTTP2"`
	VerifySSL       bool    `json:"VerifySSL"`
	QueueSize       int     `json:"QueueSize"`
	DEBUG           bool    `json:"DEBUG"`
}

func Default() Config {
	return Config{
		KeymapPath:      "",
		WatchKeymap:     true,
		Arpeggiate:      false,
		Suppress:        true,
		StrokeLogPath:   "",
		ForwardEndpoint: "",
		Token:           "",
		ExtraConfig:     "",
		UndoPath:        "undo",
		RequestTimeout:  5,
		MaxRetry:        3,
		RetryBaseDelay:  0.2,
		EnableHTTP2:     true,
		VerifySSL:       true,
		QueueSize:       256,
		DEBUG:           false,
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func SaveDefault(path string) error {
	b, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
