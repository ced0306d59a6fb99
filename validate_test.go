package gifcreator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanolucas/GifCreator/internal/testutil"
)

func TestParseFrame_Signature(t *testing.T) {
	good := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Solid(0xFF, 0, 0)})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")},
		{"unknown version", append([]byte("GIF88a"), good[6:]...)},
		{"lowercase", append([]byte("gif89a"), good[6:]...)},
		{"signature only", []byte("GIF89a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFrame(tt.data, 4)
			require.ErrorIs(t, err, ErrInvalidSignature)

			var fe *FrameError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, 4, fe.Index)
		})
	}
}

func TestParseFrame_AcceptsBothVersions(t *testing.T) {
	for _, v := range []string{"87a", "89a"} {
		t.Run(v, func(t *testing.T) {
			data := testutil.EncodeFrame(testutil.FrameSpec{Version: v, Colors: testutil.Gray(4)})
			f, err := parseFrame(data, 0)
			require.NoError(t, err)
			assert.Len(t, f.globalTable, 12)
			assert.Equal(t, data[6:13], f.screenRaw)
		})
	}
}

func TestParseFrame_RejectsAnimatedSource(t *testing.T) {
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors: testutil.Solid(0, 0, 0xFF),
		Before: [][]byte{testutil.NetscapeLoop(0)},
	})

	_, err := parseFrame(data, 2)
	require.ErrorIs(t, err, ErrAlreadyAnimated)
	assert.EqualError(t, err, "frame 2: "+ErrAlreadyAnimated.Error())
}

func TestParseFrame_OtherApplicationExtension(t *testing.T) {
	xmp := testutil.Extension(APPLICATION_BLOCK, []byte("XMP DataXMP"), []byte("<x:xmpmeta/>"))
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors: testutil.Solid(0, 0, 0xFF),
		Before: [][]byte{xmp},
	})

	_, err := parseFrame(data, 0)
	assert.NoError(t, err)
}

func TestParseFrame_NetscapeComment(t *testing.T) {
	// A comment whose text reads like a loop block is still just a comment.
	comment := testutil.Extension(COMMENT_BLOCK, []byte("NETSCAPE2.0"), []byte{0x01, 0x00, 0x00})
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors: testutil.Solid(0, 0, 0xFF),
		Before: [][]byte{comment},
	})

	f, err := parseFrame(data, 0)
	require.NoError(t, err)
	assert.False(t, f.netscape)
	assert.Equal(t, 1, f.comments)

	info, err := Inspect(data)
	require.NoError(t, err)
	assert.False(t, info.Animated)
	assert.Equal(t, 1, info.Comments)

	_, err = Create([][]byte{data, data}, []int{5, 5}, 0, nil)
	assert.NoError(t, err)
}

func TestParseFrame_ExclamationInsideBlocks(t *testing.T) {
	// Byte-wise scanning would misread the '!' and ';' inside the comment.
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors: testutil.Solid(0, 0, 0xFF),
		Before: [][]byte{testutil.Comment("!\xff\x0bNETSCAPE;")},
	})

	f, err := parseFrame(data, 0)
	require.NoError(t, err)
	assert.NotNil(t, f.descriptor)
}

func TestParseFrame_SkipsPlainTextAndComments(t *testing.T) {
	plain := testutil.Extension(PLAINTEXT_BLOCK, make([]byte, 12), []byte("hello"))
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors: testutil.Gray(2),
		Before: [][]byte{plain, testutil.Comment("made by hand")},
		GCE:    &testutil.GCE{Disposal: 1, Delay: 7, Transparent: 1},
	})

	f, err := parseFrame(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.comments)
	require.NotNil(t, f.gce)
	assert.Equal(t, uint16(7), f.gce.DelayTime)
	assert.True(t, f.gce.HasTransparency())
	assert.Equal(t, byte(1), f.gce.TransparentColorIndex)
	assert.Equal(t, byte(1), f.gce.Disposal())
}

func TestParseFrame_Layout(t *testing.T) {
	pix := []byte{0, 1, 2, 3}
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors:      testutil.Solid(1, 2, 3),
		LocalColors: testutil.Gray(4),
		Pixels:      pix,
	})

	f, err := parseFrame(data, 0)
	require.NoError(t, err)

	start := 13 + 6
	assert.Equal(t, data[start:start+10], f.descriptor)
	assert.Equal(t, testutil.Table(testutil.Gray(4)), f.localTable)
	assert.Equal(t, testutil.ImageData(pix, 2), f.body)
	assert.Equal(t, f.localTable, f.palette())
}

func TestParseFrame_BodyKeepsTrailingBlocks(t *testing.T) {
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Colors: testutil.Solid(1, 2, 3),
		After:  [][]byte{testutil.Comment("tail")},
	})

	f, err := parseFrame(data, 0)
	require.NoError(t, err)
	want := append(testutil.ImageData(make([]byte, 4), 2), testutil.Comment("tail")...)
	assert.Equal(t, want, f.body)
}

func TestParseFrame_NoGlobalTable(t *testing.T) {
	data := testutil.EncodeFrame(testutil.FrameSpec{LocalColors: testutil.Solid(9, 9, 9)})

	f, err := parseFrame(data, 0)
	require.NoError(t, err)
	assert.False(t, f.hasGlobalTable())
	assert.Equal(t, data[13:23], f.descriptor)
}

func TestParseFrame_Malformed(t *testing.T) {
	good := testutil.EncodeFrame(testutil.FrameSpec{Colors: testutil.Solid(0xFF, 0, 0)})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"missing trailer", good[:len(good)-1], ErrMalformedBlock},
		{"truncated image data", good[:len(good)-4], ErrMalformedBlock},
		{"truncated global table", good[:15], ErrMalformedBlock},
		{"truncated descriptor", good[:22], ErrMalformedBlock},
		{"stray byte", append(append([]byte{}, good[:19]...), 0x42), ErrMalformedBlock},
		{"short graphics control", append(append([]byte{}, good[:19]...), 0x21, 0xF9, 0x02, 0x00, 0x00, 0x00, 0x3B), ErrMalformedBlock},
		{"trailer without image", append(append([]byte{}, good[:19]...), 0x3B), ErrNoImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFrame(tt.data, 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInspect(t *testing.T) {
	data := testutil.EncodeFrame(testutil.FrameSpec{
		Version: "87a",
		Width:   3,
		Height:  1,
		Colors:  testutil.Gray(4),
		Pixels:  []byte{0, 1, 2},
		Before:  [][]byte{testutil.NetscapeLoop(2)},
		GCE:     &testutil.GCE{Disposal: 2, Delay: 25, Transparent: -1},
	})

	info, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, "87a", info.Version)
	assert.Equal(t, uint16(3), info.Screen.ScreenWidth)
	assert.Len(t, info.GlobalColorTable, 4)
	assert.Nil(t, info.LocalColorTable)
	assert.Equal(t, uint16(3), info.Image.Width)
	require.NotNil(t, info.GraphicsControl)
	assert.Equal(t, uint16(25), info.GraphicsControl.DelayTime)
	assert.True(t, info.Animated)
	assert.Zero(t, info.Comments)

	_, err = Inspect([]byte("nope"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
