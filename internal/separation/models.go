package separation

import "slices"

// DefaultModel is used when no model is configured.
const DefaultModel = "htdemucs"

// ModelInfo describes one four-stem demucs model.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalogue = []ModelInfo{
	{Name: "htdemucs", Description: "Hybrid Transformer Demucs (default, balanced)"},
	{Name: "htdemucs_ft", Description: "Fine-tuned Hybrid Transformer Demucs (best quality, about 4x slower)"},
	{Name: "hdemucs_mmi", Description: "Hybrid Demucs v3 trained on MusDB plus extra data"},
	{Name: "mdx", Description: "MDX challenge model trained on MusDB HQ"},
	{Name: "mdx_extra", Description: "MDX model trained with extra data"},
	{Name: "mdx_q", Description: "Quantized mdx (smaller download)"},
	{Name: "mdx_extra_q", Description: "Quantized mdx_extra (smaller download)"},
}

// Models returns the supported model catalogue.
func Models() []ModelInfo {
	return slices.Clone(catalogue)
}

// IsKnownModel reports whether name is in the catalogue.
func IsKnownModel(name string) bool {
	return slices.ContainsFunc(catalogue, func(m ModelInfo) bool { return m.Name == name })
}
