package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

const (
	gzipMinSize = 1024
	gzipLevel   = 6
)

// compressibleTypes covers the API envelopes and the metrics exposition.
var compressibleTypes = []string{"application/json", "text/plain"}

// gzipResponses compresses JSON and text bodies of at least minSize bytes
// for clients that send Accept-Encoding: gzip.
func gzipResponses(minSize int) func(http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.CompressionLevel(gzipLevel),
		gzhttp.ContentTypes(compressibleTypes),
	)
	return func(next http.Handler) http.Handler {
		if err != nil {
			return gzhttp.GzipHandler(next)
		}
		return wrap(next)
	}
}
