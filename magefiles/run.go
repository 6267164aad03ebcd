//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

const configPath = "assets/framecore.toml"

type Run mg.Namespace

// Compiles the shaders and runs the demo named in assets/framecore.toml.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", configPath), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the compute demo regardless of the configured one.
func (Run) Spectrum() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run spectrum demo...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", configPath, "-demo", "spectrum"), withStream())
	return err
}
