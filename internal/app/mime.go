package app

import (
	"log/slog"
	"mime"
)

// Minimal containers may ship without a system mime table.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".css":  "text/css; charset=utf-8",
	".yaml": "application/yaml",
}

func init() {
	for ext, typ := range mimeTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
