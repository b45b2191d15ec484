// Command gfftool lists, extracts, and replaces resources in a GFF archive.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/relkit/shatterkit/gff"
	"github.com/relkit/shatterkit/internal/hexdump"
	"github.com/relkit/shatterkit/internal/toolenv"
)

func main() {
	cmd := &cli.Command{
		Name:  "gfftool",
		Usage: "inspect and edit GFF resource archives",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			listCommand(),
			extractCommand(),
			replaceCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openArchive(path string) (*gff.Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	archive, err := gff.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return archive, nil
}

func parseTag(s string) (gff.Tag, error) {
	if len(s) != 4 {
		return gff.Tag{}, fmt.Errorf("tag %q must be exactly 4 characters", s)
	}
	var t gff.Tag
	copy(t[:], s)
	return t, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list every resource in an archive",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "hex", Usage: "TAG-NUMBER of a resource to hex-dump"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("gfftool", "info", cmd.Bool("verbose"))

			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: gfftool list FILE")
			}
			archive, err := openArchive(path)
			if err != nil {
				return err
			}

			for _, d := range archive.DescribeResources() {
				fmt.Printf("%s-%-6d @%-10d %s\n", d.Tag, d.Number, d.Offset, humanize.Bytes(uint64(d.Size)))
			}

			if hexSpec := cmd.String("hex"); hexSpec != "" {
				tag, number, err := parseTagNumber(hexSpec)
				if err != nil {
					return err
				}
				if !archive.HasResource(tag, number) {
					return fmt.Errorf("%w: %s-%d", gff.ErrNoSuchResource, tag, number)
				}
				resource, err := archive.GetResource(tag, number)
				if err != nil {
					return err
				}
				logger.Debug("hex-dumping resource", "tag", tag.String(), "number", number)
				reader := byteReaderAt(resource)
				if err := hexdump.Dump(os.Stdout, reader, 0, int64(len(resource))); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "write a resource's bytes to a file",
		ArgsUsage: "FILE TAG-NUMBER OUT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 3 {
				return fmt.Errorf("usage: gfftool extract FILE TAG-NUMBER OUT")
			}
			archive, err := openArchive(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			tag, number, err := parseTagNumber(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			resource, err := archive.GetResource(tag, number)
			if err != nil {
				return err
			}
			return os.WriteFile(cmd.Args().Get(2), resource, 0o644)
		},
	}
}

func replaceCommand() *cli.Command {
	return &cli.Command{
		Name:      "replace",
		Usage:     "replace a resource's bytes and rewrite the archive",
		ArgsUsage: "FILE TAG-NUMBER REPLACEMENT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("gfftool", "info", cmd.Bool("verbose"))

			if cmd.Args().Len() < 3 {
				return fmt.Errorf("usage: gfftool replace FILE TAG-NUMBER REPLACEMENT")
			}
			path := cmd.Args().Get(0)
			archive, err := openArchive(path)
			if err != nil {
				return err
			}
			tag, number, err := parseTagNumber(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			replacement, err := os.ReadFile(cmd.Args().Get(2))
			if err != nil {
				return fmt.Errorf("reading replacement bytes: %w", err)
			}

			newData, err := archive.ReplaceResource(tag, number, replacement)
			if err != nil {
				return err
			}

			logger.Info("replaced resource", "tag", tag.String(), "number", number, "new_size", humanize.Bytes(uint64(len(replacement))))
			return os.WriteFile(path, newData, 0o644)
		},
	}
}

func parseTagNumber(s string) (gff.Tag, uint32, error) {
	dash := len(s) - 1
	for dash >= 0 && s[dash] != '-' {
		dash--
	}
	if dash < 0 {
		return gff.Tag{}, 0, fmt.Errorf("expected TAG-NUMBER, got %q", s)
	}
	tag, err := parseTag(s[:dash])
	if err != nil {
		return gff.Tag{}, 0, err
	}
	number, err := strconv.ParseUint(s[dash+1:], 10, 32)
	if err != nil {
		return gff.Tag{}, 0, fmt.Errorf("expected TAG-NUMBER, got %q: %w", s, err)
	}
	return tag, uint32(number), nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, fmt.Errorf("offset %d out of range", off)
	}
	n := copy(p, b[off:])
	return n, nil
}
