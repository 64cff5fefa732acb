package config

import "errors"

const (
	// DefaultPort matches the port the original UI served on.
	DefaultPort       = 7860
	DefaultHost       = "localhost"
	DefaultWorkerAddr = "127.0.0.1:8882"
	DefaultTcpTimeout = 500
	DefaultSdgenHome  = "~/.sdgen"
)

var (
	DefaultGenerateTopic  = "sdgen/generations/requests"
	DefaultGeneratePrefix = DefaultGenerateTopic + ":"
)

var (
	ErrSdgenHomeNotSet = errors.New("sdgen home directory is not set")
)

// DefaultModels mirrors the two pipelines the original loaded at startup.
func DefaultModels() map[string]string {
	return map[string]string{
		"SD1.5": "runwayml/stable-diffusion-v1-5",
		"Turbo": "stabilityai/sd-turbo",
	}
}
