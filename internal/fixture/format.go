package fixture

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the serialization of a fixture.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Compression is the stream compression wrapped around a fixture.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	LZ4
	Brotli
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	case Brotli:
		return "brotli"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

var compressionExts = map[string]Compression{
	".gz":  Gzip,
	".zst": Zstd,
	".lz4": LZ4,
	".br":  Brotli,
}

var formatExts = map[string]Format{
	".json": JSON,
	".yaml": YAML,
	".yml":  YAML,
}

// Detect returns the format and compression named by path's extensions.
func Detect(path string) (Format, Compression, error) {
	name := strings.ToLower(filepath.Base(path))

	comp := None
	if c, ok := compressionExts[filepath.Ext(name)]; ok {
		comp = c
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	format, ok := formatExts[filepath.Ext(name)]
	if !ok {
		return 0, 0, fmt.Errorf("fixture %s: unknown format %q (want .json, .yaml or .yml)",
			path, filepath.Ext(name))
	}
	return format, comp, nil
}
