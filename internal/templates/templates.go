package templates

import (
	"embed"
	"fmt"
)

//go:embed files/*
var templateFS embed.FS

const (
	webAppFile = "files/webapp.json"
	configFile = "files/qaenv.yaml"
)

// WebApp returns the default web app template written by init
func WebApp() ([]byte, error) {
	return read(webAppFile)
}

// Config returns the sample qaenv.yaml written by init
func Config() ([]byte, error) {
	return read(configFile)
}

func read(name string) ([]byte, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return content, nil
}
