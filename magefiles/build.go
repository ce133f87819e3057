//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the draw shaders to SPIR-V under intermediate/shaders.
func (Build) Shaders() error {
	if err := os.MkdirAll("intermediate/shaders", 0o755); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", "shaders/draw.vert", "-o", "intermediate/shaders/draw.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", "shaders/draw.frag", "-o", "intermediate/shaders/draw.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "."), withStream()); err != nil {
		return err
	}
	return nil
}
