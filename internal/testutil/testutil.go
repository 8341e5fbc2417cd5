// Package testutil holds fixtures shared by package tests: in-memory images in
// every format the scraper understands, and a fake website served by httptest.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func solid(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	c := color.NRGBA{R: 200, G: 40, B: 40, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG returns a solid-color PNG of the given size.
func PNG(width, height int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(width, height)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG returns a solid-color JPEG of the given size.
func JPEG(width, height int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(width, height), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// GIF returns a solid-color GIF of the given size.
func GIF(width, height int) []byte {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, solid(width, height), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ICO returns an icon file with one PNG-encoded entry per size.
func ICO(sizes ...int) []byte {
	const headerLen, entryLen = 6, 16

	images := make([][]byte, len(sizes))
	for i, s := range sizes {
		images[i] = PNG(s, s)
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, [3]uint16{0, 1, uint16(len(sizes))})

	offset := headerLen + entryLen*len(sizes)
	for i, s := range sizes {
		dim := byte(s)
		if s >= 256 {
			dim = 0
		}
		buf.Write([]byte{dim, dim, 0, 0})
		_ = binary.Write(&buf, le, uint16(1))
		_ = binary.Write(&buf, le, uint16(32))
		_ = binary.Write(&buf, le, uint32(len(images[i])))
		_ = binary.Write(&buf, le, uint32(offset))
		offset += len(images[i])
	}
	for _, img := range images {
		buf.Write(img)
	}
	return buf.Bytes()
}

// Resource is a canned response served by Site.
type Resource struct {
	Status      int // defaults to 200
	ContentType string
	Body        []byte
}

// Site is a fake website. Paths without a Resource return 404.
type Site struct {
	*httptest.Server

	mu        sync.Mutex
	resources map[string]Resource
	hits      map[string]int
}

// NewSite starts a Site that is closed when the test finishes.
func NewSite(t *testing.T, resources map[string]Resource) *Site {
	t.Helper()

	s := &Site{
		resources: resources,
		hits:      make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	res, ok := s.resources[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	} else {
		// Stop net/http from sniffing one for us.
		w.Header()["Content-Type"] = nil
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(res.Body)
}

// Hits returns how many requests were made for path.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// At returns the absolute URL of path on the site.
func (s *Site) At(path string) string {
	return s.Server.URL + path
}
