package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load compiles the schema at path. A directory is loaded as one CUE
// package instance; a file is compiled on its own.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		ctx := cuecontext.New()
		s, err := Compile(ctx.CompileBytes(data, cue.Filename(path)))
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", path, err)
		}
		return s, nil
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load schema %s: no CUE instances", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, inst.Err)
	}

	ctx := cuecontext.New()
	s, err := Compile(ctx.BuildInstance(inst))
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	return s, nil
}
