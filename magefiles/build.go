//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

var shaderSources = []string{"*.vert", "*.frag", "*.comp"}

type Build mg.Namespace

// Compiles every GLSL source under assets/shaders into a .spv next to it.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and then the framecore binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Build engine...")
	_, err := executeCmd("go", withArgs("build", "-o", "bin/framecore", "."), withStream())
	return err
}

// Runs go mod tidy and go generate.
func (Build) Tidy() error {
	return goTidy()
}

func buildShaders() error {
	var sources []string
	for _, pattern := range shaderSources {
		matches, err := filepath.Glob(filepath.Join(shaderDir, pattern))
		if err != nil {
			return errors.Wrapf(err, "bad shader pattern %s", pattern)
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return errors.Newf("no shader sources found in %s", shaderDir)
	}
	for _, src := range sources {
		if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}
