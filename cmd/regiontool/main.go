// Command regiontool composes a diagnostic raster from a GFF map resource,
// its referenced tile images, and a palette. It knows nothing about
// animated color cycles, tile-layer z-order, or object interaction — it
// exists to let a human eyeball whether the core's decoders agree with the
// game's own rendering, not to reproduce it.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/relkit/shatterkit/frame"
	"github.com/relkit/shatterkit/gff"
	"github.com/relkit/shatterkit/internal/toolenv"
	"github.com/relkit/shatterkit/palette"
)

func main() {
	cmd := &cli.Command{
		Name:      "regiontool",
		Usage:     "compose a diagnostic raster from a GFF map, its tiles, and a palette",
		ArgsUsage: "FILE MAP_TAG MAP_NUMBER TILE_TAG PALETTE_TAG PALETTE_NUMBER TILE_SIZE OUT.ppm",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.IntFlag{Name: "wall-mask", Value: 63, Usage: "bitmask applied to each map cell before it is used as a tile number"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// mapGrid is a flat grid of tile numbers: a little-endian 16-bit width and
// height, followed by width*height little-endian 16-bit cells.
type mapGrid struct {
	width, height int
	cells         []uint16
}

func parseMapGrid(data []byte) (*mapGrid, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("regiontool: map resource too short for header")
	}
	width := int(binary.LittleEndian.Uint16(data))
	height := int(binary.LittleEndian.Uint16(data[2:]))
	if 4+width*height*2 > len(data) {
		return nil, fmt.Errorf("regiontool: map resource too short for %dx%d grid", width, height)
	}

	cells := make([]uint16, width*height)
	for i := range cells {
		cells[i] = binary.LittleEndian.Uint16(data[4+i*2:])
	}
	return &mapGrid{width: width, height: height, cells: cells}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := toolenv.NewLogger("regiontool", "info", cmd.Bool("verbose"))

	if cmd.Args().Len() < 8 {
		return fmt.Errorf("usage: regiontool FILE MAP_TAG MAP_NUMBER TILE_TAG PALETTE_TAG PALETTE_NUMBER TILE_SIZE OUT.ppm")
	}
	args := cmd.Args()

	mapNumber, err := strconv.ParseUint(args.Get(2), 10, 32)
	if err != nil {
		return fmt.Errorf("parsing MAP_NUMBER: %w", err)
	}
	paletteNumber, err := strconv.ParseUint(args.Get(5), 10, 32)
	if err != nil {
		return fmt.Errorf("parsing PALETTE_NUMBER: %w", err)
	}
	tileSize, err := strconv.Atoi(args.Get(6))
	if err != nil || tileSize <= 0 {
		return fmt.Errorf("parsing TILE_SIZE: %w", err)
	}
	wallMask := byte(cmd.Int("wall-mask"))

	data, err := os.ReadFile(args.Get(0))
	if err != nil {
		return fmt.Errorf("reading %s: %w", args.Get(0), err)
	}
	archive, err := gff.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args.Get(0), err)
	}

	var mapTag, tileTag, paletteTag gff.Tag
	copy(mapTag[:], args.Get(1))
	copy(tileTag[:], args.Get(3))
	copy(paletteTag[:], args.Get(4))

	mapResource, err := archive.GetResource(mapTag, uint32(mapNumber))
	if err != nil {
		return err
	}
	grid, err := parseMapGrid(mapResource)
	if err != nil {
		return err
	}

	paletteResource, err := archive.GetResource(paletteTag, uint32(paletteNumber))
	if err != nil {
		return err
	}
	pal := palette.FromBytes(paletteResource)

	canvasWidth := grid.width * tileSize
	canvasHeight := grid.height * tileSize
	canvas := make([]byte, canvasWidth*canvasHeight)

	for row := 0; row < grid.height; row++ {
		for col := 0; col < grid.width; col++ {
			tileNumber := uint32(grid.cells[row*grid.width+col] & uint16(wallMask))

			tileResource, err := archive.GetResource(tileTag, tileNumber)
			if err != nil {
				if errors.Is(err, gff.ErrNoSuchResource) {
					logger.Debug("skipping missing tile", "tile_number", tileNumber, "row", row, "col", col)
					continue
				}
				return err
			}

			frames, err := frame.ExtractFrames(tileResource)
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				continue
			}
			blitTile(canvas, canvasWidth, frames[0], col*tileSize, row*tileSize)
		}
	}

	return writePPM(args.Get(7), canvasWidth, canvasHeight, canvas, pal)
}

// blitTile copies a tile frame's pixels into canvas at (originX, originY),
// clipping to both the tile's own bounds and the canvas's.
func blitTile(canvas []byte, canvasWidth int, f *frame.Frame, originX, originY int) {
	pixels := f.Pixels()
	mask := f.AlphaMask()
	for y := 0; y < f.Height; y++ {
		cy := originY + y
		for x := 0; x < f.Width; x++ {
			cx := originX + x
			if cx < 0 || cy < 0 || cx >= canvasWidth {
				continue
			}
			idx := y*f.Width + x
			if !mask[idx] {
				continue
			}
			canvasIdx := cy*canvasWidth + cx
			if canvasIdx < 0 || canvasIdx >= len(canvas) {
				continue
			}
			canvas[canvasIdx] = pixels[idx]
		}
	}
}

func writePPM(path string, width, height int, indices []byte, pal palette.Palette) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	if _, err := fmt.Fprintf(out, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}

	rgb := make([]byte, 3)
	for _, index := range indices {
		color, err := pal.Color(int(index))
		if err != nil {
			return err
		}
		rgb[0], rgb[1], rgb[2] = color.R, color.G, color.B
		if _, err := out.Write(rgb); err != nil {
			return err
		}
	}
	return nil
}
