// Command interlace renders interlaced images without the device shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rook-computer/interlace/internal/app"
	"github.com/rook-computer/interlace/internal/interlace"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, ".env load error:", err)
	}
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "interlace:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	sizeFlags := []cli.Flag{
		&cli.IntFlag{Name: "width", Value: interlace.DefaultWidth, Usage: "surface width in pixels", Sources: cli.EnvVars("INTERLACE_WIDTH")},
		&cli.IntFlag{Name: "height", Value: interlace.DefaultHeight, Usage: "surface height in pixels", Sources: cli.EnvVars("INTERLACE_HEIGHT")},
		&cli.StringSliceFlag{Name: "point", Aliases: []string{"p"}, Usage: "intersection point as x:y; repeatable (default: surface centre)"},
	}

	return &cli.Command{
		Name:  "interlace",
		Usage: "checkerboard-interlace two images",
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "render two images into a PNG",
				ArgsUsage: "PRIMARY SECONDARY",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "interlace.png", Usage: "output PNG path"},
					&cli.StringFlag{Name: "interpolation", Value: interlace.InterpolationBilinear, Usage: "bilinear | nearest | catmullrom"},
					&cli.DurationFlag{Name: "load-timeout", Value: interlace.DefaultLoadTimeout, Usage: "time allowed to load one image"},
					&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log to stderr"},
				}, sizeFlags...),
				Action: runRender,
			},
			{
				Name:   "cells",
				Usage:  "print the partition for the given points as JSON",
				Flags:  sizeFlags,
				Action: runCells,
			},
		},
	}
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 2 {
		return fmt.Errorf("render needs exactly two image sources, got %d", cmd.NArg())
	}
	width, height, err := surfaceSize(cmd)
	if err != nil {
		return err
	}
	points, err := parsePoints(cmd.StringSlice("point"), width, height)
	if err != nil {
		return err
	}

	game := interlace.New(nil, interlace.Options{
		Width:         width,
		Height:        height,
		Images:        cmd.Args().Slice(),
		LoadTimeout:   cmd.Duration("load-timeout"),
		Interpolation: cmd.String("interpolation"),
	})
	if cmd.Bool("verbose") {
		game.Logger = app.NewFileLogger(os.Stderr)
	}
	if err := game.Update(points); err != nil {
		return err
	}
	if err := game.Init(ctx); err != nil {
		return err
	}
	game.Wait()
	if game.State() != interlace.StateReady {
		if err := game.Err(); err != nil {
			return err
		}
		return interlace.ErrImagesNotLoaded
	}

	out := cmd.String("out")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, game.Snapshot().Surface); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %s (%dx%d, %d cells)\n", out, width, height, len(game.Cells()))
	return nil
}

func runCells(ctx context.Context, cmd *cli.Command) error {
	width, height, err := surfaceSize(cmd)
	if err != nil {
		return err
	}
	points, err := parsePoints(cmd.StringSlice("point"), width, height)
	if err != nil {
		return err
	}
	cells := interlace.Partition(points, interlace.SurfacePx(width), interlace.SurfacePx(height))
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(cells)
}

// surfaceSize reads --width and --height. Zero would otherwise resolve to the
// compositor default instead of failing.
func surfaceSize(cmd *cli.Command) (int, int, error) {
	width, height := cmd.Int("width"), cmd.Int("height")
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w (got %dx%d)", interlace.ErrInvalidSize, width, height)
	}
	return width, height, nil
}

// parsePoints reads x:y pairs. No pairs means the surface centre.
func parsePoints(raw []string, width, height int) ([]interlace.Point, error) {
	if len(raw) == 0 {
		return []interlace.Point{interlace.Pt(float64(width)/2, float64(height)/2)}, nil
	}
	points := make([]interlace.Point, 0, len(raw))
	for _, r := range raw {
		xs, ys, ok := strings.Cut(strings.TrimSpace(r), ":")
		if !ok {
			return nil, fmt.Errorf("point %q: want x:y", r)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", r, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", r, err)
		}
		points = append(points, interlace.Pt(x, y))
	}
	if err := interlace.ValidatePoints(points, interlace.SurfacePx(width), interlace.SurfacePx(height)); err != nil {
		return nil, err
	}
	return points, nil
}
