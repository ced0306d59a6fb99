package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io/fs"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gifcreator "github.com/Nanolucas/GifCreator"
	"github.com/Nanolucas/GifCreator/internal/fsutil"
	"github.com/Nanolucas/GifCreator/internal/httputil"
	"github.com/Nanolucas/GifCreator/internal/monitoring"
	"github.com/Nanolucas/GifCreator/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func newTestResolver() (*Resolver, *fsutil.MemoryFileSystem, *httputil.MockHTTPClient) {
	mfs := fsutil.NewMemoryFileSystem()
	client := httputil.NewMockHTTPClient()
	return &Resolver{Client: client, FS: mfs}, mfs, client
}

func gradient(w, h int) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 60), B: 0x80, A: 0xFF})
		}
	}
	return m
}

func encodePNG(t *testing.T, m image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, m))
	return buf.Bytes()
}

func decodeGIF(t *testing.T, data []byte) image.Image {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte("GIF8")), "not a GIF stream")
	m, err := gif.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return m
}

func TestResolve_GIFPassThrough(t *testing.T) {
	r, _, _ := newTestResolver()
	frame := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Gray(4), After: [][]byte{testutil.Comment("kept")}})

	got, err := r.Resolve(context.Background(), Bytes(frame), 0)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestResolve_PNGReencoded(t *testing.T) {
	r, _, _ := newTestResolver()

	got, err := r.Resolve(context.Background(), Bytes(encodePNG(t, gradient(5, 3))), 0)
	require.NoError(t, err)

	m := decodeGIF(t, got)
	assert.Equal(t, image.Rect(0, 0, 5, 3), m.Bounds())
}

func TestResolve_Bitmap(t *testing.T) {
	r, _, _ := newTestResolver()

	got, err := r.Resolve(context.Background(), Bitmap(gradient(2, 2)), 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), decodeGIF(t, got).Bounds())

	_, err = r.Resolve(context.Background(), Bitmap(nil), 3)
	assert.ErrorIs(t, err, ErrUnresolvableFrameSource)
}

func TestResolve_MaxWidth(t *testing.T) {
	r, _, _ := newTestResolver()
	r.MaxWidth = 4

	got, err := r.Resolve(context.Background(), Bitmap(gradient(8, 4)), 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), decodeGIF(t, got).Bounds())

	wide := testutil.EncodeFrame(testutil.FrameSpec{Width: 8, Height: 2, Colors: testutil.Gray(2)})
	got, err = r.Resolve(context.Background(), Bytes(wide), 0)
	require.NoError(t, err)
	assert.NotEqual(t, wide, got)
	assert.Equal(t, image.Rect(0, 0, 4, 1), decodeGIF(t, got).Bounds())

	narrow := testutil.EncodeFrame(testutil.FrameSpec{Width: 3, Height: 2, Colors: testutil.Gray(2)})
	got, err = r.Resolve(context.Background(), Bytes(narrow), 0)
	require.NoError(t, err)
	assert.Equal(t, narrow, got)
}

func TestResolve_MaxWidthRejectsAnimatedGIF(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	anim := &gif.GIF{
		Image: []*image.Paletted{
			image.NewPaletted(image.Rect(0, 0, 20, 20), pal),
			image.NewPaletted(image.Rect(0, 0, 20, 20), pal),
		},
		Delay: []int{10, 10},
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))

	r, _, _ := newTestResolver()
	got, err := r.Resolve(context.Background(), Bytes(buf.Bytes()), 0)
	require.NoError(t, err)
	_, err = gifcreator.Create([][]byte{got}, []int{10}, 0, nil)
	assert.ErrorIs(t, err, gifcreator.ErrAlreadyAnimated)

	r.MaxWidth = 10
	_, err = r.Resolve(context.Background(), Bytes(buf.Bytes()), 3)
	require.ErrorIs(t, err, gifcreator.ErrAlreadyAnimated)
	assert.ErrorIs(t, err, ErrUnresolvableFrameSource)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Index)
}

func TestResolve_Path(t *testing.T) {
	r, mfs, _ := newTestResolver()
	frame := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Solid(1, 2, 3)})
	require.NoError(t, mfs.WriteFile("frames/0.gif", frame, 0644))

	got, err := r.Resolve(context.Background(), Path("frames/0.gif"), 0)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	_, err = r.Resolve(context.Background(), Path("frames/missing.gif"), 7)
	require.ErrorIs(t, err, ErrUnresolvableFrameSource)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 7, se.Index)
}

func TestResolve_URL(t *testing.T) {
	r, _, client := newTestResolver()
	frame := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Solid(1, 2, 3)})
	client.AddResponse(http.StatusOK, frame).
		AddResponse(http.StatusInternalServerError, nil).
		AddErrorResponse(errors.New("connection refused"))

	ctx := context.Background()
	got, err := r.Resolve(ctx, URL("https://example.com/a.gif"), 0)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	_, err = r.Resolve(ctx, URL("https://example.com/b.gif"), 1)
	assert.ErrorIs(t, err, ErrUnresolvableFrameSource)
	assert.Contains(t, err.Error(), "unexpected status 500")

	_, err = r.Resolve(ctx, URL("https://example.com/c.gif"), 2)
	assert.ErrorIs(t, err, ErrUnresolvableFrameSource)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Equal(t, 3, client.RequestCount())
	assert.Equal(t, "example.com", client.Requests[0].URL.Host)
}

func TestResolve_MaxBytes(t *testing.T) {
	r, mfs, client := newTestResolver()
	r.MaxBytes = 8
	big := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Gray(4)})
	require.NoError(t, mfs.WriteFile("big.gif", big, 0644))
	client.AddResponse(http.StatusOK, big)

	_, err := r.Resolve(context.Background(), Path("big.gif"), 0)
	assert.ErrorIs(t, err, ErrUnresolvableFrameSource)

	_, err = r.Resolve(context.Background(), URL("http://example.com/big.gif"), 0)
	assert.ErrorIs(t, err, ErrUnresolvableFrameSource)
}

func TestResolve_Undecodable(t *testing.T) {
	r, _, _ := newTestResolver()

	for _, src := range []Source{Bytes([]byte("definitely not an image")), Bytes(nil), {Kind: Kind(42)}} {
		_, err := r.Resolve(context.Background(), src, 0)
		assert.ErrorIs(t, err, ErrUnresolvableFrameSource, src.String())
	}
}

func TestResolveAll(t *testing.T) {
	r, mfs, _ := newTestResolver()
	frame := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Solid(1, 2, 3)})
	require.NoError(t, mfs.WriteFile("a.gif", frame, 0644))

	frames, err := r.ResolveAll(context.Background(), []Source{Path("a.gif"), Bytes(frame)})
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	_, err = r.ResolveAll(context.Background(), []Source{Path("a.gif"), Path("b.gif")})
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Index)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.ResolveAll(ctx, []Source{Path("a.gif")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"https://example.com/frame.gif", KindURL},
		{"http://example.com/frame.gif", KindURL},
		{"frames/0.gif", KindPath},
		{"/tmp/frame.png", KindPath},
		{"ftp://example.com/frame.gif", KindPath},
		{"C:\\frames\\0.gif", KindPath},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			src := Parse(tt.in)
			assert.Equal(t, tt.want, src.Kind)
			assert.Equal(t, tt.in, src.Location)
			assert.Equal(t, tt.in, src.String())
		})
	}
}
