package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"

	gifcreator "github.com/Nanolucas/GifCreator"
	"github.com/Nanolucas/GifCreator/internal/config"
	"github.com/Nanolucas/GifCreator/internal/fsutil"
	"github.com/Nanolucas/GifCreator/internal/monitoring"
	"github.com/Nanolucas/GifCreator/internal/source"
	"github.com/Nanolucas/GifCreator/internal/version"
)

const defaultOutput = "animation.gif"

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

type options struct {
	config       string
	output       string
	delay        int
	loop         int
	disposal     int
	transparency string
	maxWidth     int
	inspect      bool
	version      bool
	quiet        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, so tests can drive it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gifcreator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gifcreator [flags] frame...\n       gifcreator -config anim.yaml\n       gifcreator -inspect file.gif...\n\n")
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.config, "config", "", "Path to a YAML or JSON animation manifest")
	fs.StringVar(&opts.output, "o", "", "Output file (default from manifest, else "+defaultOutput+")")
	fs.IntVar(&opts.delay, "delay", config.DefaultDelay, "Delay between frames in 1/100s")
	fs.IntVar(&opts.loop, "loop", 0, "Loop count (0 loops forever, negative counts as 0)")
	fs.IntVar(&opts.disposal, "disposal", int(gifcreator.DisposalBackground), "Disposal method for every frame (0-7)")
	fs.StringVar(&opts.transparency, "transparency", "black", "Transparent color: black, none or #rrggbb")
	fs.IntVar(&opts.maxWidth, "max-width", 0, "Scale frames wider than this down (0 disables)")
	fs.BoolVar(&opts.inspect, "inspect", false, "Print the block layout of each GIF argument and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.BoolVar(&opts.quiet, "quiet", false, "Suppress diagnostic logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "gifcreator %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return 0
	}
	if opts.quiet {
		monitoring.SetLogger(nil)
	}

	resolver := source.NewResolver()

	if opts.inspect {
		if fs.NArg() == 0 {
			fmt.Fprintln(stderr, red("error:"), "-inspect needs at least one file")
			return 2
		}
		return inspect(ctx, resolver, fs.Args(), stdout, stderr)
	}

	m, err := loadManifest(opts, fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, red("error:"), err)
		return 2
	}
	if err := create(ctx, fsutil.OSFileSystem{}, resolver, m, opts, stdout); err != nil {
		fmt.Fprintln(stderr, red("error:"), err)
		return 1
	}
	return 0
}

// loadManifest reads -config, or builds a manifest from the flags and the
// positional frame arguments.
func loadManifest(opts options, args []string) (*config.Manifest, error) {
	if opts.config != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("frame arguments cannot be combined with -config")
		}
		m, err := config.LoadManifest(opts.config)
		if err != nil {
			return nil, err
		}
		if opts.maxWidth > 0 {
			m.MaxWidth = opts.maxWidth
		}
		return m, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("no frames given")
	}
	delay, disposal := opts.delay, opts.disposal
	loop := opts.loop
	if loop < 0 {
		loop = 0
	}
	m := &config.Manifest{
		Loop:         loop,
		Delay:        &delay,
		Disposal:     &disposal,
		Transparency: opts.transparency,
		MaxWidth:     opts.maxWidth,
		Frames:       make([]config.FrameEntry, len(args)),
	}
	for i, a := range args {
		m.Frames[i] = config.FrameEntry{Source: a}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func create(ctx context.Context, fsys fsutil.FileSystem, resolver *source.Resolver, m *config.Manifest, opts options, stdout io.Writer) error {
	output := opts.output
	if output == "" {
		output = m.OutputPath()
	}
	if output == "" {
		output = defaultOutput
	}

	resolver.FS = fsys
	resolver.MaxWidth = m.MaxWidth
	frames, err := resolver.ResolveAll(ctx, m.Sources())
	if err != nil {
		return err
	}

	o, err := m.Options()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gifcreator.EncodeAll(&buf, m.Animation(frames), o); err != nil {
		return err
	}
	if err := writeAtomic(fsys, output, buf.Bytes()); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s %s: %s frames, %s bytes, loop %d\n",
		green("created"), bold(output), cyan(len(frames)), cyan(buf.Len()), m.Loop)
	return nil
}

// writeAtomic writes data next to path under a unique name and renames it
// into place, so a failed run never leaves a partial GIF behind.
func writeAtomic(fsys fsutil.FileSystem, path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := fsys.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func inspect(ctx context.Context, resolver *source.Resolver, args []string, stdout, stderr io.Writer) int {
	status := 0
	for i, a := range args {
		data, err := resolver.Resolve(ctx, source.Parse(a), i)
		if err == nil {
			var info *gifcreator.FrameInfo
			if info, err = gifcreator.Inspect(data); err == nil {
				printInfo(stdout, a, info)
				continue
			}
		}
		fmt.Fprintf(stderr, "%s %s: %v\n", red("error:"), a, err)
		status = 1
	}
	return status
}

func printInfo(w io.Writer, name string, info *gifcreator.FrameInfo) {
	fmt.Fprintf(w, "%s\n", bold(name))
	fmt.Fprintf(w, "  version:            GIF%s\n", info.Version)
	fmt.Fprintf(w, "  screen:             %dx%d\n", info.Screen.ScreenWidth, info.Screen.ScreenHeight)
	fmt.Fprintf(w, "  global color table: %d entries\n", len(info.GlobalColorTable))
	fmt.Fprintf(w, "  image:              %dx%d at (%d,%d)\n", info.Image.Width, info.Image.Height, info.Image.Left, info.Image.Top)
	if info.Image.HasLocalColorTable() {
		if info.LocalColorTable.Equal(info.GlobalColorTable) {
			fmt.Fprintf(w, "  local color table:  %d entries (same as global)\n", len(info.LocalColorTable))
		} else {
			fmt.Fprintf(w, "  local color table:  %d entries\n", len(info.LocalColorTable))
		}
	}
	if g := info.GraphicsControl; g != nil {
		fmt.Fprintf(w, "  delay:              %d\n", g.DelayTime)
		fmt.Fprintf(w, "  disposal:           %d\n", g.Disposal())
		if g.HasTransparency() {
			fmt.Fprintf(w, "  transparent index:  %d\n", g.TransparentColorIndex)
		}
	}
	if info.Comments > 0 {
		fmt.Fprintf(w, "  comments:           %d\n", info.Comments)
	}
	if info.Animated {
		fmt.Fprintf(w, "  %s\n", yellow("already animated (NETSCAPE2.0 present)"))
	}
}
