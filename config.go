package deepzoom

import (
	"os"

	"github.com/bodgit/deepzoom/pyramid"
	"github.com/bodgit/deepzoom/resample"
	"github.com/bodgit/deepzoom/tile"
	"gopkg.in/yaml.v3"
)

// Config holds the settings for creating images and collections. It can be
// loaded from a YAML file.
type Config struct {
	TileSize     int     `yaml:"tile_size"`
	TileOverlap  int     `yaml:"tile_overlap"`
	TileFormat   string  `yaml:"tile_format"`
	ImageQuality float64 `yaml:"image_quality"`
	ResizeFilter string  `yaml:"resize_filter"`
	// Colors reduces PNG tiles to a palette when between 2 and 256
	Colors int `yaml:"colors"`

	Collection CollectionConfig `yaml:"collection"`
}

// CollectionConfig holds the settings that only apply to collections.
type CollectionConfig struct {
	MaxLevel        int     `yaml:"max_level"`
	TileSize        int     `yaml:"tile_size"`
	TileFormat      string  `yaml:"tile_format"`
	ImageQuality    float64 `yaml:"image_quality"`
	BackgroundColor string  `yaml:"background_color"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		TileSize:     pyramid.DefaultTileSize,
		TileOverlap:  pyramid.DefaultTileOverlap,
		TileFormat:   string(tile.DefaultFormat),
		ImageQuality: tile.DefaultQuality,
		ResizeFilter: resample.Default.String(),
		Collection: CollectionConfig{
			MaxLevel:        7,
			TileSize:        256,
			TileFormat:      string(tile.DefaultFormat),
			ImageQuality:    tile.DefaultQuality,
			BackgroundColor: "#000000",
		},
	}
}

// LoadConfig reads a YAML file over the top of DefaultConfig.
func LoadConfig(file string) (Config, error) {
	c := DefaultConfig()

	b, err := os.ReadFile(file)
	if err != nil {
		return c, err
	}

	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}

	return c, nil
}
