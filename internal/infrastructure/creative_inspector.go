package infrastructure

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"creativelens/internal/domain"
)

// ImageInspector sniffs the content type of a creative and, for images, reads
// its dimensions to pick the format group. Videos carry no dimensions here.
type ImageInspector struct{}

func NewImageInspector() *ImageInspector {
	return &ImageInspector{}
}

func (ImageInspector) Inspect(filename, contentType string, data []byte) (domain.Creative, error) {
	ct := resolveContentType(filename, contentType, data)
	creative := domain.Creative{Filename: filename, ContentType: ct}

	switch {
	case strings.HasPrefix(ct, "image/"):
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return domain.Creative{}, fmt.Errorf("%w: decoding %s: %v", domain.ErrUnsupportedCreative, filename, err)
		}
		creative.Type = domain.FileTypeImage
		creative.Width = cfg.Width
		creative.Height = cfg.Height
		creative.Format = domain.FormatGroupFor(cfg.Width, cfg.Height)
	case strings.HasPrefix(ct, "video/"):
		creative.Type = domain.FileTypeVideo
	default:
		return domain.Creative{}, fmt.Errorf("%w: %s is %s", domain.ErrUnsupportedCreative, filename, ct)
	}
	return creative, nil
}

// resolveContentType trusts a specific declared type, then the sniffed bytes,
// then the file extension.
func resolveContentType(filename, declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if sniffed, _, err := mime.ParseMediaType(http.DetectContentType(data)); err == nil && sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	return "application/octet-stream"
}
