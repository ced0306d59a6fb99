// Package source turns frame inputs (raw bytes, files, URLs or in-memory
// images) into single-image GIF byte streams ready for gifcreator.
//
// GIF input is passed through untouched so its compressed data survives the
// merge. Any other format is decoded and re-encoded with image/gif.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"

	"github.com/fumiama/imgsz"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	gifcreator "github.com/Nanolucas/GifCreator"
	"github.com/Nanolucas/GifCreator/internal/fsutil"
	"github.com/Nanolucas/GifCreator/internal/httputil"
	"github.com/Nanolucas/GifCreator/internal/monitoring"
)

// ErrUnresolvableFrameSource is matched by every Resolve failure.
var ErrUnresolvableFrameSource = errors.New("source: frame source could not be resolved")

// DefaultMaxBytes caps how much a single file or download may hold.
const DefaultMaxBytes = 32 << 20

// maxDimension is the largest width or height a GIF can describe.
const maxDimension = 1<<16 - 1

// Kind says how a Source is located.
type Kind int

const (
	KindBytes Kind = iota
	KindPath
	KindURL
	KindBitmap
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindPath:
		return "path"
	case KindURL:
		return "url"
	case KindBitmap:
		return "bitmap"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Source is one frame input.
type Source struct {
	Kind     Kind
	Location string // path or URL
	Data     []byte
	Image    image.Image
}

func Bytes(b []byte) Source { return Source{Kind: KindBytes, Data: b} }

func Path(p string) Source { return Source{Kind: KindPath, Location: p} }

func URL(u string) Source { return Source{Kind: KindURL, Location: u} }

func Bitmap(m image.Image) Source { return Source{Kind: KindBitmap, Image: m} }

// Parse treats http and https URLs as URLs and anything else as a path.
func Parse(s string) Source {
	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return URL(s)
	}
	return Path(s)
}

func (s Source) String() string {
	switch s.Kind {
	case KindPath, KindURL:
		return s.Location
	case KindBytes:
		return fmt.Sprintf("%d bytes", len(s.Data))
	}
	return s.Kind.String()
}

// Error reports which frame could not be resolved.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("frame %d: %v: %v", e.Index, ErrUnresolvableFrameSource, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrUnresolvableFrameSource, e.Err}
}

// Resolver fetches and normalizes frame sources.
type Resolver struct {
	Client httputil.HTTPClient
	FS     fsutil.FileSystem
	// MaxWidth scales wider frames down, keeping the aspect ratio. Zero
	// leaves every frame at its own size.
	MaxWidth int
	// MaxBytes limits file and download sizes.
	MaxBytes int64
}

// NewResolver uses the OS filesystem and http.DefaultClient.
func NewResolver() *Resolver {
	return &Resolver{
		Client:   httputil.NewStandardClient(nil),
		FS:       fsutil.OSFileSystem{},
		MaxBytes: DefaultMaxBytes,
	}
}

// Resolve returns src as a single-image GIF stream.
func (r *Resolver) Resolve(ctx context.Context, src Source, index int) ([]byte, error) {
	data, err := r.load(ctx, src)
	if err != nil {
		return nil, &Error{Index: index, Err: err}
	}
	out, err := r.normalize(data, src.Image, index)
	if err != nil {
		return nil, &Error{Index: index, Err: err}
	}
	return out, nil
}

// ResolveAll resolves every source in order and stops at the first failure.
func (r *Resolver) ResolveAll(ctx context.Context, srcs []Source) ([][]byte, error) {
	frames := make([][]byte, 0, len(srcs))
	for i, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Index: i, Err: err}
		}
		b, err := r.Resolve(ctx, src, i)
		if err != nil {
			return nil, err
		}
		frames = append(frames, b)
	}
	return frames, nil
}

func (r *Resolver) maxBytes() int64 {
	if r.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return r.MaxBytes
}

func (r *Resolver) load(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind {
	case KindBytes:
		if len(src.Data) == 0 {
			return nil, errors.New("empty byte source")
		}
		return src.Data, nil
	case KindPath:
		if r.FS == nil {
			return nil, errors.New("no filesystem configured")
		}
		data, err := r.FS.ReadFile(src.Location)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > r.maxBytes() {
			return nil, fmt.Errorf("%s is %d bytes (max %d)", src.Location, len(data), r.maxBytes())
		}
		return data, nil
	case KindURL:
		return r.fetch(ctx, src.Location)
	case KindBitmap:
		if src.Image == nil {
			return nil, errors.New("nil bitmap")
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown source kind %v", src.Kind)
}

func (r *Resolver) fetch(ctx context.Context, u string) ([]byte, error) {
	if r.Client == nil {
		return nil, errors.New("no HTTP client configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}
	if int64(len(data)) > r.maxBytes() {
		return nil, fmt.Errorf("%s exceeds %d bytes", u, r.maxBytes())
	}
	return data, nil
}

// normalize passes GIF data through and re-encodes everything else. m is
// used directly when data is nil.
func (r *Resolver) normalize(data []byte, m image.Image, index int) ([]byte, error) {
	if m == nil {
		sz, format, err := imgsz.DecodeSize(bytes.NewReader(data))
		if err == nil {
			if sz.Width > maxDimension || sz.Height > maxDimension {
				return nil, fmt.Errorf("%s image is too large: %dx%d", format, sz.Width, sz.Height)
			}
			if format == "gif" {
				if !r.needsScaling(sz.Width) {
					return data, nil
				}
				// Decoding keeps only the first image and drops the loop block.
				if info, err := gifcreator.Inspect(data); err == nil && info.Animated {
					return nil, fmt.Errorf("%w: cannot scale", gifcreator.ErrAlreadyAnimated)
				}
			}
		}

		m, format, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		monitoring.Logf("source: frame %d: re-encoding %s image as GIF", index, format)
	}

	m = r.scale(m)

	var buf bytes.Buffer
	if err := gif.Encode(&buf, m, &gif.Options{NumColors: 256, Drawer: xdraw.FloydSteinberg}); err != nil {
		return nil, fmt.Errorf("failed to encode GIF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Resolver) needsScaling(width int) bool {
	return r.MaxWidth > 0 && width > r.MaxWidth
}

func (r *Resolver) scale(m image.Image) image.Image {
	b := m.Bounds()
	if !r.needsScaling(b.Dx()) {
		return m
	}
	h := b.Dy() * r.MaxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.MaxWidth, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), m, b, xdraw.Src, nil)
	return dst
}
