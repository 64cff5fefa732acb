package types

const (
	ModeTxt2Img = "txt2img"
	ModeImg2Img = "img2img"
	ModeUpscale = "upscale"
)

const (
	// Diffusion models want spatial dimensions on a 64px grid; the range is
	// clamped to keep memory use sane on consumer GPUs.
	MinDimension  = 256
	MaxDimension  = 768
	DimensionStep = 64
)

// Request from client - no ID field
type GenerateParamsRequest struct {
	Model          string  `json:"model" msgpack:"model"`
	Prompt         string  `json:"prompt" msgpack:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty" msgpack:"negative_prompt,omitempty"`
	Steps          int     `json:"steps" msgpack:"steps"`
	CfgScale       float64 `json:"cfg_scale" msgpack:"cfg_scale"`
	Width          int     `json:"width" msgpack:"width"`
	Height         int     `json:"height" msgpack:"height"`
	Seed           *int64  `json:"seed,omitempty" msgpack:"seed,omitempty"`
	OutputFormat   string  `json:"output_format,omitempty" msgpack:"output_format,omitempty"`
	WebhookUrl     string  `json:"webhook_url,omitempty" msgpack:"webhook_url,omitempty"`

	// Image-to-image only
	SourceImage string  `json:"source_image,omitempty" msgpack:"source_image,omitempty"`
	Strength    float64 `json:"strength,omitempty" msgpack:"strength,omitempty"`
}

// Internal type with server-generated ID and mode
type GenerateParams struct {
	ID             string  `json:"id" msgpack:"id"`
	Mode           string  `json:"mode" msgpack:"mode"`
	Model          string  `json:"model" msgpack:"model"`
	Prompt         string  `json:"prompt" msgpack:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty" msgpack:"negative_prompt,omitempty"`
	Steps          int     `json:"steps" msgpack:"steps"`
	CfgScale       float64 `json:"cfg_scale" msgpack:"cfg_scale"`
	Width          int     `json:"width" msgpack:"width"`
	Height         int     `json:"height" msgpack:"height"`
	Seed           int64   `json:"seed" msgpack:"seed"`
	OutputFormat   string  `json:"output_format,omitempty" msgpack:"output_format,omitempty"`
	WebhookUrl     string  `json:"webhook_url,omitempty" msgpack:"webhook_url,omitempty"`
	SourceImage    string  `json:"source_image,omitempty" msgpack:"source_image,omitempty"`
	Strength       float64 `json:"strength,omitempty" msgpack:"strength,omitempty"`
}

type GenerationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

type UploadResponse struct {
	Url string `json:"url"`
}

// ClampResolution aligns the requested resolution to the valid grid.
func ClampResolution(width, height int) (int, int) {
	clamp := func(v int) int {
		if v < MinDimension {
			v = MinDimension
		}
		if v > MaxDimension {
			v = MaxDimension
		}
		return (v / DimensionStep) * DimensionStep
	}

	return clamp(width), clamp(height)
}
