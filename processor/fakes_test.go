package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"drivefetch/models"
)

var errRemote = errors.New("remote error")

// fakeDrive serves listings and file contents from memory.
// contents holds one body per attempt; the last one is reused afterwards.
type fakeDrive struct {
	listings map[string][]models.Entry
	listErr  map[string]error
	contents map[string][]string
	openErr  map[string]error
	// breakAfter makes a stream fail after that many bytes
	breakAfter map[string]int
	authErr    error

	listCalls []string
	opens     map[string]int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		listings:   map[string][]models.Entry{},
		listErr:    map[string]error{},
		contents:   map[string][]string{},
		openErr:    map[string]error{},
		breakAfter: map[string]int{},
		opens:      map[string]int{},
	}
}

func (f *fakeDrive) folder(id string, children ...models.Entry) *fakeDrive {
	f.listings[id] = children
	return f
}

func (f *fakeDrive) file(id string, bodies ...string) *fakeDrive {
	f.contents[id] = bodies
	return f
}

func (f *fakeDrive) Authenticate(ctx context.Context, folderID string) error {
	return f.authErr
}

func (f *fakeDrive) ListChildren(ctx context.Context, folderID string) ([]models.Entry, error) {
	f.listCalls = append(f.listCalls, folderID)
	if err := f.listErr[folderID]; err != nil {
		return nil, err
	}
	listing, ok := f.listings[folderID]
	if !ok {
		return nil, fmt.Errorf("%w: folder %s not found", errRemote, folderID)
	}
	out := make([]models.Entry, len(listing))
	copy(out, listing)
	return out, nil
}

func (f *fakeDrive) OpenStream(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	f.opens[fileID]++
	if err := f.openErr[fileID]; err != nil {
		return nil, 0, err
	}
	bodies, ok := f.contents[fileID]
	if !ok || len(bodies) == 0 {
		return nil, 0, fmt.Errorf("%w: file %s not found", errRemote, fileID)
	}
	n := f.opens[fileID] - 1
	if n >= len(bodies) {
		n = len(bodies) - 1
	}
	body := bodies[n]
	var r io.Reader = strings.NewReader(body)
	if limit, ok := f.breakAfter[fileID]; ok {
		r = io.MultiReader(strings.NewReader(body[:limit]), errReader{})
	}
	return io.NopCloser(r), int64(len(body)), nil
}

func (f *fakeDrive) totalOpens() int {
	total := 0
	for _, n := range f.opens {
		total += n
	}
	return total
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func folder(id, title string) models.Entry {
	return models.Entry{ID: id, Title: title, Kind: models.KindContainer, MimeType: models.FolderMimeType}
}

func file(id, title, checksum string, size int64) models.Entry {
	return models.Entry{ID: id, Title: title, Kind: models.KindLeaf, Checksum: checksum, Size: size, SizeKnown: true}
}
