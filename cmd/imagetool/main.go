// Command imagetool describes and dumps frames from a GFF image resource.
package main

import (
	"context"
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
		Name:  "imagetool",
		Usage: "inspect and dump GFF image frames",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			describeCommand(),
			dumpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadFrames(path, tagSpec string, number uint32) ([]*frame.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	archive, err := gff.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var tag gff.Tag
	copy(tag[:], tagSpec)
	resource, err := archive.GetResource(tag, number)
	if err != nil {
		return nil, err
	}
	return frame.ExtractFrames(resource)
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "print frame dimensions for an image resource",
		ArgsUsage: "FILE TAG NUMBER",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("imagetool", "info", cmd.Bool("verbose"))

			if cmd.Args().Len() < 3 {
				return fmt.Errorf("usage: imagetool describe FILE TAG NUMBER")
			}
			number, err := strconv.ParseUint(cmd.Args().Get(2), 10, 32)
			if err != nil {
				return fmt.Errorf("parsing resource number: %w", err)
			}

			frames, err := loadFrames(cmd.Args().Get(0), cmd.Args().Get(1), uint32(number))
			if err != nil {
				return err
			}

			logger.Debug("extracted frames", "count", len(frames))
			for i, f := range frames {
				fmt.Printf("frame %d: %dx%d\n", i, f.Width, f.Height)
			}
			return nil
		},
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "write one frame as a PPM, using a GFF palette resource for colors",
		ArgsUsage: "FILE TAG NUMBER FRAME_INDEX PALETTE_TAG PALETTE_NUMBER OUT.ppm",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 7 {
				return fmt.Errorf("usage: imagetool dump FILE TAG NUMBER FRAME_INDEX PALETTE_TAG PALETTE_NUMBER OUT.ppm")
			}

			number, err := strconv.ParseUint(cmd.Args().Get(2), 10, 32)
			if err != nil {
				return fmt.Errorf("parsing resource number: %w", err)
			}
			frameIndex, err := strconv.Atoi(cmd.Args().Get(3))
			if err != nil {
				return fmt.Errorf("parsing frame index: %w", err)
			}
			paletteNumber, err := strconv.ParseUint(cmd.Args().Get(5), 10, 32)
			if err != nil {
				return fmt.Errorf("parsing palette number: %w", err)
			}

			data, err := os.ReadFile(cmd.Args().Get(0))
			if err != nil {
				return fmt.Errorf("reading %s: %w", cmd.Args().Get(0), err)
			}
			archive, err := gff.Parse(data)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", cmd.Args().Get(0), err)
			}

			var imageTag, paletteTag gff.Tag
			copy(imageTag[:], cmd.Args().Get(1))
			copy(paletteTag[:], cmd.Args().Get(4))

			imageResource, err := archive.GetResource(imageTag, uint32(number))
			if err != nil {
				return err
			}
			paletteResource, err := archive.GetResource(paletteTag, uint32(paletteNumber))
			if err != nil {
				return err
			}

			frames, err := frame.ExtractFrames(imageResource)
			if err != nil {
				return err
			}
			if frameIndex < 0 || frameIndex >= len(frames) {
				return fmt.Errorf("frame index %d out of range (have %d frames)", frameIndex, len(frames))
			}
			f := frames[frameIndex]
			pal := palette.FromBytes(paletteResource)

			return writePPM(cmd.Args().Get(6), f, pal)
		},
	}
}

func writePPM(path string, f *frame.Frame, pal palette.Palette) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	if _, err := fmt.Fprintf(out, "P6\n%d %d\n255\n", f.Width, f.Height); err != nil {
		return err
	}

	pixels := f.Pixels()
	rgb := make([]byte, 3)
	for _, index := range pixels {
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
