package registration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrPhotoTooLarge = errors.New("photo too large")
	ErrNotImage      = errors.New("photo must be a jpeg, png, gif or webp image")
)

// PhotoStore turns an uploaded file into a reference the draft can carry.
type PhotoStore interface {
	Save(ctx context.Context, r io.Reader) (string, error)
}

type Photo struct {
	ContentType string
	Data        []byte
}

const PhotoPathPrefix = "/photos/"

// photoTypes are the sniffed types served back as is. Anything else, SVG
// included, is refused.
var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type MemPhotos struct {
	mu      sync.RWMutex
	photos  map[string]Photo
	maxSize int64
}

func NewMemPhotos(maxSize int64) *MemPhotos {
	return &MemPhotos{photos: make(map[string]Photo), maxSize: maxSize}
}

// Save keeps the bytes under the type detected from their content; the
// type the client declared is ignored.
func (m *MemPhotos) Save(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, m.maxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > m.maxSize {
		return "", ErrPhotoTooLarge
	}
	contentType := http.DetectContentType(data)
	if !photoTypes[contentType] {
		return "", ErrNotImage
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.photos[id] = Photo{ContentType: contentType, Data: data}
	m.mu.Unlock()
	return PhotoPathPrefix + id, nil
}

func (m *MemPhotos) Get(id string) (Photo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	return p, ok
}
