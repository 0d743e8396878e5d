package types

// Model represents an embedding model artifact discovered on disk.
type Model struct {
	// Stable identifier for the model (file name including extension).
	// example: all-MiniLM-L6-v2.Q8_0.gguf
	ID string `json:"id" example:"all-MiniLM-L6-v2.Q8_0.gguf"`
	// Human-friendly name.
	// example: all-MiniLM-L6-v2
	Name string `json:"name" example:"all-MiniLM-L6-v2"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/embeddings/all-MiniLM-L6-v2.Q8_0.gguf
	Path string `json:"path" example:"/home/user/models/embeddings/all-MiniLM-L6-v2.Q8_0.gguf"`
	// Quantization level or variant string.
	// example: Q8_0
	Quant string `json:"quant,omitempty" example:"Q8_0"`
}
