package globals

import (
	"github.com/Carmen-Shannon/flux-go/engine/compute"
)

// GlobalsBuilderOption is a function that modifies the globals before its
// resource sets are built.
type GlobalsBuilderOption func(*globalsImpl)

// WithFontAtlas assigns the font atlas texture and sampler bound in the
// globals group. Required when the configuration requests fonts; the texture
// becomes owned by the globals and is released with it.
//
// Parameters:
//   - tex: the atlas texture, created via Compute.CreateDataTexture
//   - samp: the sampler used to read it
//
// Returns:
//   - GlobalsBuilderOption: the option to pass to NewGlobals
func WithFontAtlas(tex compute.Texture, samp compute.Sampler) GlobalsBuilderOption {
	return func(g *globalsImpl) {
		g.fontTexture = tex
		g.fontSampler = samp
	}
}
