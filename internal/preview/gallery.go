package preview

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
	"github.com/justyntemme/nexus/internal/logging"
)

// thumbnailWorkers bounds concurrent video thumbnail jobs.
const thumbnailWorkers = 4

// Gallery builds the preview map of a listing.
type Gallery struct {
	registry *Registry
	thumbs   *Thumbnailer
}

// NewGallery creates a gallery. thumbs may be nil, in which case videos get
// no preview.
func NewGallery(registry *Registry, thumbs *Thumbnailer) *Gallery {
	return &Gallery{registry: registry, thumbs: thumbs}
}

// Registry returns the registry URLs are created in.
func (g *Gallery) Registry() *Registry { return g.registry }

// Build returns a preview URL per file name. Images point at the file
// itself, videos at a generated thumbnail. A video whose thumbnail failed or
// timed out maps to "". Every URL is owned by owner.
func (g *Gallery) Build(ctx context.Context, owner Owner, files []*host.File) map[string]URL {
	previews := make(map[string]URL, len(files))
	var mu sync.Mutex

	var eg errgroup.Group
	eg.SetLimit(thumbnailWorkers)

	for _, f := range files {
		f := f
		switch lister.MediaKindOf(f.Type) {
		case lister.MediaImage:
			u := g.registry.CreateFile(owner, f)
			mu.Lock()
			previews[f.Name] = u
			mu.Unlock()

		case lister.MediaVideo:
			mu.Lock()
			previews[f.Name] = ""
			mu.Unlock()
			if g.thumbs == nil {
				continue
			}
			eg.Go(func() error {
				data, err := g.thumbs.Generate(ctx, f)
				if err != nil {
					logging.Debug("no video preview", zap.String("file", f.Name), zap.Error(err))
					return nil
				}
				u := g.registry.CreateBytes(owner, f.Name, "image/jpeg", data)
				if ctx.Err() != nil {
					// the listing was abandoned while this frame was decoded
					g.registry.Revoke(u)
					return nil
				}
				mu.Lock()
				previews[f.Name] = u
				mu.Unlock()
				return nil
			})
		}
	}
	eg.Wait()
	return previews
}
