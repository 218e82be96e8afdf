package images

// modelDefaults maps a section style to a recommended generation model.
// Explicit per-run overrides in meta.image.models take precedence.
var modelDefaults = map[string]string{
	"general":        "runwayml/stable-diffusion-v1-5",
	"photorealistic": "stabilityai/stable-diffusion-xl-base-1.0",
	"concept_art":    "CompVis/stable-diffusion-v1-4",
	"cartoon":        "ai-characters/st-AI-le",
	"anime":          "stablediffusionapi/anything-v5",
	"dalle2":         "dall-e-2",
	"dalle3":         "dall-e-3",
	"stock":          "unsplash",
}

// resolveModel picks the model for a section: explicit style mapping first,
// then the configured default, then the built-in table.
func resolveModel(style, configured string, overrides map[string]string) string {
	if style != "" {
		if m, ok := overrides[style]; ok {
			return m
		}
		if configured == "" {
			if m, ok := modelDefaults[style]; ok {
				return m
			}
		}
	}
	if configured != "" {
		return configured
	}
	return modelDefaults["general"]
}
