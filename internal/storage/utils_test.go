package storage

import "testing"

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "json", key: "dashboards/tfa/state.json", want: "application/json"},
		{name: "gzipped json", key: "dashboards/tfa/state.json.gz", want: "application/gzip"},
		{name: "parquet export", key: "exports/dsecs/data.parquet", want: "application/vnd.apache.parquet"},
		{name: "html page", key: "pages/index.html", want: "text/html"},
		{name: "yaml config", key: "configs/tfa.yml", want: "application/yaml"},
		{name: "png frame", key: "frames/0.png", want: "image/png"},
		{name: "plain text", key: "notes.txt", want: "text/plain"},
		{name: "unknown extension", key: "blob.cdf", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentType(tt.key); got != tt.want {
				t.Errorf("contentType(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
