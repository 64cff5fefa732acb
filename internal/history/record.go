package history

import "time"

// Record is the persisted description of one generation event. It is
// written once and never mutated.
//
// Fields are optional depending on mode:
//   - txt2img: prompt, negative prompt, steps, cfg scale
//   - img2img: the above plus strength and source image
//   - upscale: scale and original size
type Record struct {
	ID   string `json:"id"`
	Mode string `json:"mode"`

	Prompt         string  `json:"prompt,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"steps,omitempty"`
	CfgScale       float64 `json:"cfg_scale,omitempty"`
	Seed           int64   `json:"seed"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	ModelID        string  `json:"model_id,omitempty"`

	Strength    float64 `json:"strength,omitempty"`
	SourceImage string  `json:"source_image,omitempty"`

	Scale          float64 `json:"scale,omitempty"`
	OriginalWidth  int     `json:"original_width,omitempty"`
	OriginalHeight int     `json:"original_height,omitempty"`

	ElapsedSeconds float64   `json:"elapsed_seconds,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	// Paths relative to the history root, set by the store on write.
	FullImage string `json:"full_image,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Summary is the compact entry kept in index.json for fast listing.
type Summary struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt,omitempty"`
	Mode      string    `json:"mode"`
	Seed      int64     `json:"seed"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

func (r *Record) summary() Summary {
	return Summary{
		ID:        r.ID,
		Prompt:    r.Prompt,
		Mode:      r.Mode,
		Seed:      r.Seed,
		Width:     r.Width,
		Height:    r.Height,
		CreatedAt: r.CreatedAt,
		Thumbnail: r.Thumbnail,
	}
}
