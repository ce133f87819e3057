package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	// Read SPIR-V binary file. The module creation converts it to words and
	// validates the size, so the loader only checks it is non-empty.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("shader binary '%s' is empty", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}
