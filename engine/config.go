package engine

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lumen/engine/core"
)

type ApplicationConfig struct {
	// Window starting position, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting size.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
}

type RendererConfig struct {
	Debug                 bool   `toml:"debug"`
	MaxBuffers            uint32 `toml:"max_buffers"`
	MaxImages             uint32 `toml:"max_images"`
	MaxSamplers           uint32 `toml:"max_samplers"`
	MaxMeshes             uint32 `toml:"max_meshes"`
	MaxBoundSamplers      uint32 `toml:"max_bound_samplers"`
	MaxBoundStorageImages uint32 `toml:"max_bound_storage_images"`
	MaxBoundSampledImages uint32 `toml:"max_bound_sampled_images"`
	MaxDrawsPerFrame      uint32 `toml:"max_draws_per_frame"`
}

type AssetConfig struct {
	// Directory watched for assets, relative to the working directory.
	Dir string `toml:"dir"`
	// Directory holding compiled SPIR-V, relative to the working directory.
	ShaderDir string `toml:"shader_dir"`
}

type SystemsConfig struct {
	MaxMeshCount     uint32 `toml:"max_mesh_count"`
	MaxMaterialCount uint32 `toml:"max_material_count"`
	MaxTextureCount  uint32 `toml:"max_texture_count"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetConfig       `toml:"assets"`
	Systems     SystemsConfig     `toml:"systems"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
			Name:        "Lumen",
		},
		Renderer: RendererConfig{
			Debug:                 false,
			MaxBuffers:            4096,
			MaxImages:             1024,
			MaxSamplers:           16,
			MaxMeshes:             1024,
			MaxBoundSamplers:      16,
			MaxBoundStorageImages: 64,
			MaxBoundSampledImages: 1024,
			MaxDrawsPerFrame:      4096,
		},
		Assets: AssetConfig{
			Dir:       "assets",
			ShaderDir: "intermediate/shaders",
		},
		Systems: SystemsConfig{
			MaxMeshCount:     1024,
			MaxMaterialCount: 1024,
			MaxTextureCount:  1024,
		},
	}
}

// LoadConfig reads the TOML config at path, filling anything unset with the
// defaults. A missing file is not an error; the defaults apply as-is.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		core.LogInfo("no config at %s, using defaults", path)
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, config); err != nil {
		core.LogError("failed to parse %s: %s", path, err.Error())
		return nil, err
	}
	return config, nil
}
