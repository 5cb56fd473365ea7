package whatsapp

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectMIME picks a content type from the file extension, falling back
// to sniffing data.
func DetectMIME(name string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return stripParams(t)
		}
	}
	return stripParams(http.DetectContentType(data))
}

func stripParams(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.TrimSpace(t)
}
