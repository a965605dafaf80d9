package delivery_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"resumeup/internal/delivery"
	"resumeup/internal/gateway"
	"resumeup/internal/logging"
	"resumeup/internal/registry"
	"resumeup/internal/services"
	"resumeup/internal/testsupport"
)

type fakeFetcher struct {
	mu        sync.Mutex
	payload   []byte
	err       error
	ready     bool
	downloads int
}

func (f *fakeFetcher) Download(ctx context.Context, handle string, w io.Writer, progress gateway.ProgressFunc) (int64, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	n, err := w.Write(f.payload)
	if progress != nil {
		progress(int64(n), int64(len(f.payload)))
	}
	return int64(n), err
}

func (f *fakeFetcher) ArtifactReady(context.Context, string) (bool, error) {
	return f.ready, nil
}

func (f *fakeFetcher) Progress(context.Context, string) gateway.ProgressReport {
	return gateway.ProgressReport{Stage: "processing", Message: "Processing..."}
}

func (f *fakeFetcher) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

type recordingOpener struct {
	mu        sync.Mutex
	locations []string
	err       error
}

func (o *recordingOpener) Open(_ context.Context, location string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.locations = append(o.locations, location)
	return nil
}

type recordingShare struct {
	mu        sync.Mutex
	locations []string
	names     []string
	err       error
}

func (s *recordingShare) Share(_ context.Context, location, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.locations = append(s.locations, location)
	s.names = append(s.names, displayName)
	return nil
}

type denyingPicker struct{}

func (denyingPicker) Pick(context.Context) (string, error) {
	return "", errors.New("denied")
}

func deliverableResume() *registry.Resume {
	return &registry.Resume{
		ID:               "srv-1",
		OriginalFilename: "My Resume.pdf",
		Status:           registry.StatusCompleted,
		DownloadURL:      "http://example.com/download/srv-1",
	}
}

func TestBrowserDeliveryOpensURL(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("browser"))
	fetcher := &fakeFetcher{ready: true}
	opener := &recordingOpener{}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(), delivery.WithOpener(opener))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := d.Deliver(context.Background(), deliverableResume(), nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if result.Shared {
		t.Fatal("browser delivery reported Shared")
	}
	if len(opener.locations) != 1 || opener.locations[0] != "http://example.com/download/srv-1" {
		t.Fatalf("opened = %v", opener.locations)
	}
	if fetcher.downloadCount() != 0 {
		t.Fatal("browser delivery fetched bytes")
	}
}

func TestScopedDeliverySavesVerifiedCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("scoped"))
	fetcher := &fakeFetcher{ready: true, payload: []byte("pdf-bytes")}
	opener := &recordingOpener{}
	share := &recordingShare{}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(),
		delivery.WithOpener(opener),
		delivery.WithShareSurface(share),
		delivery.WithTempDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resume := deliverableResume()
	result, err := d.Deliver(context.Background(), resume, nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if result.Shared {
		t.Fatal("scoped delivery fell back to share unexpectedly")
	}
	data, err := os.ReadFile(result.Location)
	if err != nil {
		t.Fatalf("read placed artifact: %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Fatalf("placed content = %q", data)
	}
	if filepath.Dir(result.Location) != cfg.Paths.DownloadDir {
		t.Fatalf("artifact placed at %s, want under %s", result.Location, cfg.Paths.DownloadDir)
	}
	if filepath.Base(result.Location) != "improved_My_Resume.pdf" {
		t.Fatalf("display name = %s", filepath.Base(result.Location))
	}
	if len(share.locations) != 0 {
		t.Fatal("share surface used on the happy path")
	}
}

func TestScopedDeliveryFallsBackToShareOnDenial(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("scoped"))
	fetcher := &fakeFetcher{ready: true, payload: []byte("pdf-bytes")}
	share := &recordingShare{}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(),
		delivery.WithPicker(denyingPicker{}),
		delivery.WithShareSurface(share),
		delivery.WithTempDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := d.Deliver(context.Background(), deliverableResume(), nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !result.Shared {
		t.Fatal("denied picker did not fall back to share")
	}
	if len(share.locations) != 1 {
		t.Fatalf("share invoked %d times, want exactly 1", len(share.locations))
	}
	data, err := os.ReadFile(share.locations[0])
	if err != nil {
		t.Fatalf("read shared artifact: %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Fatalf("shared content = %q", data)
	}
}

func TestScopedDeliveryFallsBackWhenDestinationUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("scoped"))
	fetcher := &fakeFetcher{ready: true, payload: []byte("pdf-bytes")}
	share := &recordingShare{}

	// A destination under a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(),
		delivery.WithPicker(delivery.NewFixedPicker(filepath.Join(blocker, "sub"))),
		delivery.WithShareSurface(share),
		delivery.WithTempDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := d.Deliver(context.Background(), deliverableResume(), nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !result.Shared {
		t.Fatal("unavailable destination did not fall back to share")
	}
	if len(share.locations) != 1 {
		t.Fatalf("share invoked %d times, want exactly 1", len(share.locations))
	}
}

func TestUnscopedDeliveryShares(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("unscoped"))
	fetcher := &fakeFetcher{ready: true, payload: []byte("pdf-bytes")}
	share := &recordingShare{}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(),
		delivery.WithShareSurface(share),
		delivery.WithTempDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := d.Deliver(context.Background(), deliverableResume(), nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !result.Shared {
		t.Fatal("unscoped delivery did not share")
	}
	if len(share.names) != 1 || share.names[0] != "improved_My_Resume.pdf" {
		t.Fatalf("share names = %v", share.names)
	}
}

func TestEveryDeliveryFetchesFreshBytes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("unscoped"))
	fetcher := &fakeFetcher{ready: true, payload: []byte("pdf-bytes")}
	share := &recordingShare{}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(),
		delivery.WithShareSurface(share),
		delivery.WithTempDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	resume := deliverableResume()
	for i := 0; i < 2; i++ {
		if _, err := d.Deliver(ctx, resume, nil); err != nil {
			t.Fatalf("Deliver %d: %v", i, err)
		}
	}
	if got := fetcher.downloadCount(); got != 2 {
		t.Fatalf("downloads = %d, want 2 (no caching)", got)
	}
}

func TestDeliverRefusesNonDeliverableResume(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("browser"))
	d, err := delivery.New(cfg, &fakeFetcher{ready: true}, logging.NewNop(),
		delivery.WithOpener(&recordingOpener{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stuck := &registry.Resume{ID: "x", Status: registry.StatusProcessing}
	if _, err := d.Deliver(context.Background(), stuck, nil); !errors.Is(err, services.ErrMalformedArtifact) {
		t.Fatalf("Deliver error = %v, want ErrMalformedArtifact", err)
	}
}

func TestFailedDownloadLeavesNoPartialFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryTarget("unscoped"))
	tempDir := t.TempDir()
	fetcher := &fakeFetcher{
		ready: true,
		err:   services.Wrap(services.ErrTransport, "gateway", "download", "connection reset", nil),
	}

	d, err := delivery.New(cfg, fetcher, logging.NewNop(),
		delivery.WithShareSurface(&recordingShare{}),
		delivery.WithTempDir(tempDir),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := d.Deliver(context.Background(), deliverableResume(), nil); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("Deliver error = %v, want ErrTransport", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir holds %d leftover files", len(entries))
	}
}

func TestUnknownTargetRejectedAtConstruction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Delivery.Target = "carrier-pigeon"

	if _, err := delivery.New(cfg, &fakeFetcher{}, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("New error = %v, want ErrConfiguration", err)
	}
}
