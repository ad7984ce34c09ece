package passes

import (
	"github.com/Carmen-Shannon/flux-go/engine/compute"
)

// PassGraphOption is a function that modifies the passGraph before it builds
// its resources.
type PassGraphOption func(*passGraph)

// WithInputMedia assigns the external media texture and sampler bound in the
// stage group when the configuration requests an input texture. Building a
// graph whose configuration requests one without this option fails.
//
// Parameters:
//   - tex: the media texture, created via Compute.CreateDataTexture
//   - samp: the sampler used to read it
//
// Returns:
//   - PassGraphOption: the option to pass to NewPassGraph
func WithInputMedia(tex compute.Texture, samp compute.Sampler) PassGraphOption {
	return func(g *passGraph) {
		g.inputTexture = tex
		g.inputSampler = samp
	}
}
