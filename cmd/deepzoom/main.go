package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/deepzoom"
	"github.com/bodgit/deepzoom/archive"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const defaultArchive = "pyramids.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// loadConfig reads the config file, if any, and applies flags that were
// explicitly set on top
func loadConfig(c *cli.Context) (deepzoom.Config, error) {
	cfg := deepzoom.DefaultConfig()
	if file := c.String("config"); file != "" {
		var err error
		if cfg, err = deepzoom.LoadConfig(file); err != nil {
			return cfg, err
		}
	}

	if c.IsSet("tile-size") {
		cfg.TileSize = c.Int("tile-size")
	}
	if c.IsSet("tile-overlap") {
		cfg.TileOverlap = c.Int("tile-overlap")
	}
	if c.IsSet("tile-format") {
		cfg.TileFormat = c.String("tile-format")
		cfg.Collection.TileFormat = c.String("tile-format")
	}
	if c.IsSet("image-quality") {
		cfg.ImageQuality = c.Float64("image-quality")
		cfg.Collection.ImageQuality = c.Float64("image-quality")
	}
	if c.IsSet("resize-filter") {
		cfg.ResizeFilter = c.String("resize-filter")
	}
	if c.IsSet("colors") {
		cfg.Colors = c.Int("colors")
	}
	if c.IsSet("max-level") {
		cfg.Collection.MaxLevel = c.Int("max-level")
	}
	if c.IsSet("collection-tile-size") {
		cfg.Collection.TileSize = c.Int("collection-tile-size")
	}
	if c.IsSet("background") {
		cfg.Collection.BackgroundColor = c.String("background")
	}

	return cfg, nil
}

func defaultDestination(source, ext string) string {
	if _, err := os.Stat(source); err == nil {
		return strings.TrimSuffix(source, filepath.Ext(source)) + ext
	}
	base := filepath.Base(source)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

var imageFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "tile-size",
		Aliases: []string{"s"},
		EnvVars: []string{"DEEPZOOM_TILE_SIZE"},
		Value:   254,
		Usage:   "size of the tiles",
	},
	&cli.StringFlag{
		Name:    "tile-format",
		Aliases: []string{"f"},
		EnvVars: []string{"DEEPZOOM_TILE_FORMAT"},
		Value:   "jpg",
		Usage:   "image format of the tiles (jpg or png)",
	},
	&cli.IntFlag{
		Name:    "tile-overlap",
		Aliases: []string{"o"},
		EnvVars: []string{"DEEPZOOM_TILE_OVERLAP"},
		Value:   1,
		Usage:   "overlap of the tiles in pixels (0-10)",
	},
	&cli.Float64Flag{
		Name:    "image-quality",
		Aliases: []string{"q"},
		EnvVars: []string{"DEEPZOOM_IMAGE_QUALITY"},
		Value:   0.8,
		Usage:   "quality of the image output (0-1)",
	},
	&cli.StringFlag{
		Name:    "resize-filter",
		Aliases: []string{"r"},
		EnvVars: []string{"DEEPZOOM_RESIZE_FILTER"},
		Value:   "default",
		Usage:   "filter for resizing (default, nearest, bilinear, bicubic)",
	},
	&cli.IntFlag{
		Name:    "colors",
		EnvVars: []string{"DEEPZOOM_COLORS"},
		Usage:   "reduce png tiles to this many colors (2-256)",
	},
}

var collectionFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "max-level",
		Aliases: []string{"m"},
		EnvVars: []string{"DEEPZOOM_MAX_LEVEL"},
		Value:   7,
		Usage:   "highest level of the collection pyramid",
	},
	&cli.IntFlag{
		Name:    "collection-tile-size",
		EnvVars: []string{"DEEPZOOM_COLLECTION_TILE_SIZE"},
		Value:   256,
		Usage:   "size of the shared collection tiles",
	},
	&cli.StringFlag{
		Name:    "background",
		Aliases: []string{"b"},
		EnvVars: []string{"DEEPZOOM_BACKGROUND"},
		Value:   "#000000",
		Usage:   "background color of the collection tiles",
	},
}

func main() {
	app := cli.NewApp()

	app.Name = "deepzoom"
	app.Usage = "Deep Zoom image and collection creator"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"DEEPZOOM_CONFIG"},
			Usage:   "path to YAML config file",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Before = func(c *cli.Context) error {
		// A missing .env file is fine
		_ = godotenv.Load()
		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:      "image",
			Usage:     "Create a Deep Zoom image",
			ArgsUsage: "SOURCE",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "destination",
					Aliases: []string{"d"},
					Usage:   "descriptor to write, defaults to SOURCE with a .dzi extension",
				},
			}, imageFlags...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				cfg, err := loadConfig(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				source := c.Args().First()
				destination := c.String("destination")
				if destination == "" {
					destination = defaultDestination(source, ".dzi")
				}

				ic := deepzoom.NewImageCreator(cfg, newLogger(c))
				if _, err := ic.Create(deepzoom.PathSource(source), destination); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "collection",
			Usage:     "Create or extend a Deep Zoom collection from Deep Zoom images",
			ArgsUsage: "DESCRIPTOR...",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "destination",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "collection descriptor to write",
				},
				&cli.BoolFlag{
					Name:  "append",
					Usage: "add to an existing collection",
				},
			}, collectionFlags...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				cfg, err := loadConfig(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				logger := newLogger(c)
				destination := c.String("destination")

				var col *deepzoom.Collection
				if c.Bool("append") {
					col, err = deepzoom.OpenCollection(destination, cfg, logger)
				} else {
					col, err = deepzoom.NewCollection(destination, cfg, logger)
				}
				if err != nil {
					return cli.Exit(err, 1)
				}

				for _, source := range c.Args().Slice() {
					if _, err := col.Append(source); err != nil {
						return cli.Exit(err, 1)
					}
				}

				if err := col.Save(); err != nil {
					return cli.Exit(err, 1)
				}

				for _, w := range col.Warnings() {
					fmt.Fprintf(os.Stderr, "warning: %v\n", w)
				}

				return nil
			},
		},
		{
			Name:      "tile-collection",
			Usage:     "Tile images and compose them into a Deep Zoom collection",
			ArgsUsage: "SOURCE...",
			Flags: append(append([]cli.Flag{
				&cli.StringFlag{
					Name:     "destination",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "collection descriptor to write",
				},
				&cli.IntFlag{
					Name:    "workers",
					Aliases: []string{"j"},
					Usage:   "number of images to tile at once",
				},
			}, imageFlags...), collectionFlags...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				cfg, err := loadConfig(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				cc := deepzoom.NewCollectionCreator(cfg, newLogger(c))
				if c.IsSet("workers") {
					cc.Workers = c.Int("workers")
				}

				col, err := cc.CreateFromImages(c.Context, c.Args().Slice(), c.String("destination"))
				if err != nil {
					return cli.Exit(err, 1)
				}

				for _, w := range col.Warnings() {
					fmt.Fprintf(os.Stderr, "warning: %v\n", w)
				}

				return nil
			},
		},
		{
			Name:      "pack",
			Usage:     "Store Deep Zoom images in an archive",
			ArgsUsage: "DESCRIPTOR...",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "archive",
					Aliases: []string{"a"},
					EnvVars: []string{"DEEPZOOM_ARCHIVE"},
					Value:   defaultArchive,
					Usage:   "path to archive",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				a, err := archive.Open(c.String("archive"))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer a.Close()

				logger := newLogger(c)
				for _, file := range c.Args().Slice() {
					logger.Printf("Packing %s as %s\n", file, archive.Name(file))
					if err := a.Pack(file); err != nil {
						return cli.Exit(err, 1)
					}
				}

				return nil
			},
		},
		{
			Name:      "unpack",
			Usage:     "Restore a Deep Zoom image from an archive",
			ArgsUsage: "NAME [DESCRIPTOR]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "archive",
					Aliases: []string{"a"},
					EnvVars: []string{"DEEPZOOM_ARCHIVE"},
					Value:   defaultArchive,
					Usage:   "path to archive",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				a, err := archive.Open(c.String("archive"))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer a.Close()

				name := c.Args().First()
				file := c.Args().Get(1)
				if file == "" {
					file = name + ".dzi"
				}

				if err := a.Unpack(name, file); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "Remove a Deep Zoom image or collection and its tiles",
			ArgsUsage: "DESCRIPTOR...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				for _, file := range c.Args().Slice() {
					if err := deepzoom.Remove(file); err != nil {
						return cli.Exit(err, 1)
					}
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
