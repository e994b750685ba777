package loaders

import (
	"fmt"

	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/resources"
)

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path, name string) (*resources.Resource, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%4 != 0 {
		core.LogError("shader '%s' is %d bytes, not a whole number of words", name, len(data))
		return nil, fmt.Errorf("%w: %s has size %d", core.ErrInvalidShader, path, len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != resources.SpirvMagic {
		core.LogError("shader '%s' has magic 0x%08x", name, code[0])
		return nil, fmt.Errorf("%w: %s has magic 0x%08x", core.ErrInvalidShader, path, code[0])
	}
	return &resources.Resource{
		Name:     name,
		FullPath: path,
		Type:     resources.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(r *resources.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
