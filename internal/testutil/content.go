package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"

	"nft-go/internal/nft"
)

// StubFetcher writes fixed bytes as a .png instead of downloading.
type StubFetcher struct {
	mu    sync.Mutex
	Data  []byte
	Err   error
	URLs  []string
	Paths []string
}

func NewStubFetcher() *StubFetcher {
	return &StubFetcher{Data: []byte("fake-image")}
}

func (f *StubFetcher) FetchByURL(ctx context.Context, url string, destBase string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URLs = append(f.URLs, url)
	if f.Err != nil {
		return "", f.Err
	}
	path := destBase + ".png"
	if err := os.WriteFile(path, f.Data, 0644); err != nil {
		return "", err
	}
	f.Paths = append(f.Paths, path)
	return path, nil
}

// StubGenerator writes an image derived from the prompt instead of calling a provider.
type StubGenerator struct {
	mu      sync.Mutex
	Err     error
	Prompts []string
	Paths   []string
}

func NewStubGenerator() *StubGenerator {
	return &StubGenerator{}
}

func (g *StubGenerator) Generate(ctx context.Context, prompt string, destBase string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	if prompt == "" {
		return "", nft.ErrEmptyPrompt
	}
	path := destBase + ".png"
	if err := os.WriteFile(path, []byte("generated:"+prompt), 0644); err != nil {
		return "", err
	}
	g.Paths = append(g.Paths, path)
	return path, nil
}

// StubMetadataFetcher serves metadata documents from a map keyed by URI.
type StubMetadataFetcher struct {
	Docs map[string]map[string]any
}

func (f *StubMetadataFetcher) FetchMetadata(ctx context.Context, uri string) (map[string]any, error) {
	doc, ok := f.Docs[uri]
	if !ok {
		return nil, fmt.Errorf("no metadata at %s", uri)
	}
	return doc, nil
}

var (
	_ nft.ImageFetcher    = (*StubFetcher)(nil)
	_ nft.ImageGenerator  = (*StubGenerator)(nil)
	_ nft.MetadataFetcher = (*StubMetadataFetcher)(nil)
)
