package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/fetchers"
)

// writeJSON encodes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writePNG writes an image payload with PNG headers.
func writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Write(img)
}

// statusForPipelineError separates upstream fetch failures, which the client
// cannot do anything about, from local processing failures.
func statusForPipelineError(err error) int {
	var fetchErr *fetchers.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
