// path: internal/platform/adapters/util.go
package adapters

import (
	"io"
	"os"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// copyAndClose copies src's bytes into dst and closes src regardless of
// outcome, used by multipart upload helpers that open local media files.
func copyAndClose(dst io.Writer, src *os.File) (int64, error) {
	defer src.Close()
	return io.Copy(dst, src)
}

// countMediaByType splits resolved media into image/video counts for the
// per-platform count and image/video mixing rules (§4.2, §6.3). Media of
// an unrecognized type counts toward neither — the upload step itself
// rejects bytes the platform can't handle.
func countMediaByType(media []platform.ResolvedMedia) (images, videos int) {
	for _, m := range media {
		switch m.Type {
		case store.MediaTypeImage:
			images++
		case store.MediaTypeVideo:
			videos++
		}
	}
	return images, videos
}
