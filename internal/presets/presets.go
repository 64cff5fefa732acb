package presets

// Preset is a named bundle of generation parameters surfaced to clients as
// a starting point.
type Preset struct {
	Name           string   `json:"name"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	Steps          int      `json:"steps"`
	CfgScale       float64  `json:"cfg_scale"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Note           string   `json:"note,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Registry order is stable so clients render presets consistently.
var registry = []Preset{
	{
		Name:           "Realistic Photo",
		Prompt:         "ultra realistic, 35mm photography, photorealistic, cinematic lighting",
		NegativePrompt: "low quality, blurry, deformed, extra limbs",
		Steps:          28,
		CfgScale:       7.5,
		Width:          512,
		Height:         512,
		Note:           "Natural lighting, sharp details, realistic skin texture",
		Tags:           []string{"realistic", "photo"},
	},
	{
		Name:           "Anime",
		Prompt:         "high quality anime, clean lines, vibrant colors, soft rim lighting, studio lighting",
		NegativePrompt: "blurry, low detail, mutation, deformed",
		Steps:          30,
		CfgScale:       8.0,
		Width:          512,
		Height:         512,
		Note:           "Use for anime-style character generation",
		Tags:           []string{"anime", "stylized"},
	},
	{
		Name:           "Cinematic / Moody",
		Prompt:         "dramatic cinematic lighting, moody, film grain, Kodak Portra, filmic color grading",
		NegativePrompt: "oversaturated, low detail, flat lighting",
		Steps:          30,
		CfgScale:       7.0,
		Width:          768,
		Height:         512,
		Note:           "Wider aspect ratio for cinematic feel",
		Tags:           []string{"cinematic", "moody"},
	},
	{
		Name:           "Oil Painting / Classic Art",
		Prompt:         "oil painting, impasto brush strokes, classical lighting, Rembrandt style",
		NegativePrompt: "blurry, cartoonish, digital artifacts",
		Steps:          40,
		CfgScale:       8.5,
		Width:          512,
		Height:         768,
		Note:           "Painterly aesthetic reminiscent of classical oil art",
		Tags:           []string{"art", "oil", "painterly"},
	},
	{
		Name:           "Cyberpunk / Neon",
		Prompt:         "cyberpunk city, neon reflections, wet streets, high detail, synthwave aesthetic",
		NegativePrompt: "low detail, daytime, blurry",
		Steps:          30,
		CfgScale:       7.5,
		Width:          512,
		Height:         768,
		Note:           "Vibrant neon-lit futuristic look",
		Tags:           []string{"cyberpunk", "neon"},
	},
}

// List returns all presets in registry order.
func List() []Preset {
	out := make([]Preset, len(registry))
	copy(out, registry)
	return out
}

// Get returns a copy of the named preset, or false when unknown.
func Get(name string) (Preset, bool) {
	for _, preset := range registry {
		if preset.Name == name {
			return preset, true
		}
	}

	return Preset{}, false
}

// Names lists preset names in registry order.
func Names() []string {
	names := make([]string, len(registry))
	for i, preset := range registry {
		names[i] = preset.Name
	}

	return names
}
