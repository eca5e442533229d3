package separation

import (
	"context"

	"stemsplit/internal/audio"
)

// Separator splits a stereo buffer into the four stems.
type Separator interface {
	// Load prepares the model. It is idempotent and must succeed before
	// Separate produces output.
	Load(ctx context.Context) error
	Separate(ctx context.Context, buf *audio.Buffer) (audio.StemSet, error)
	Model() string
	// Device returns the resolved device once loaded, otherwise the
	// configured value.
	Device() string
}
