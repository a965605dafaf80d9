package delivery

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// DirectoryPicker chooses the destination directory for scoped deliveries.
// An error from Pick means the user denied or no directory is available;
// scoped delivery then falls back to the share surface.
type DirectoryPicker interface {
	Pick(ctx context.Context) (string, error)
}

// ShareSurface hands a local file (or a URL) to the platform share mechanism.
type ShareSurface interface {
	Share(ctx context.Context, location, displayName string) error
}

// Opener launches the platform handler for a file path or URL.
type Opener interface {
	Open(ctx context.Context, location string) error
}

type fixedPicker struct {
	dir string
}

// NewFixedPicker returns a picker that always yields the given directory.
func NewFixedPicker(dir string) DirectoryPicker {
	return fixedPicker{dir: dir}
}

func (p fixedPicker) Pick(context.Context) (string, error) {
	if strings.TrimSpace(p.dir) == "" {
		return "", fmt.Errorf("no download directory configured")
	}
	return p.dir, nil
}

// execOpener shells out to the platform opener, or to a configured override.
type execOpener struct {
	command string
}

// NewExecOpener returns an Opener backed by the platform open command. An
// empty command selects the platform default.
func NewExecOpener(command string) Opener {
	return &execOpener{command: strings.TrimSpace(command)}
}

func (o *execOpener) Open(ctx context.Context, location string) error {
	command := o.command
	if command == "" {
		switch runtime.GOOS {
		case "darwin":
			command = "open"
		case "windows":
			command = "rundll32"
		default:
			command = "xdg-open"
		}
	}

	args := []string{location}
	if command == "rundll32" {
		args = []string{"url.dll,FileProtocolHandler", location}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", command, err)
	}
	// The handler owns the artifact from here; don't hold the flow on it.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// openerShare adapts an Opener into a ShareSurface for platforms without a
// native share sheet.
type openerShare struct {
	opener Opener
}

// NewOpenerShare returns a ShareSurface that opens the location instead of
// sharing it.
func NewOpenerShare(opener Opener) ShareSurface {
	return openerShare{opener: opener}
}

func (s openerShare) Share(ctx context.Context, location, _ string) error {
	return s.opener.Open(ctx, location)
}
