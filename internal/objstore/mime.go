package objstore

import (
	"mime"
	"path"
)

func guessContentType(key string) string {
	ext := path.Ext(key)
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}
