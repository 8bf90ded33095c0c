package storage

import "strings"

// contentType maps a storage key to the MIME type recorded on backends that
// keep object metadata (GCS, S3).
func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".json.gz"), strings.HasSuffix(key, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(key, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(key, ".html"):
		return "text/html"
	case strings.HasSuffix(key, ".yml"), strings.HasSuffix(key, ".yaml"):
		return "application/yaml"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".txt"), strings.HasSuffix(key, ".md"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
