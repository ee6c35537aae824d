//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

type Test mg.Namespace

const binaryPath = "bin/anima-rhi"

// Downloads the modules and builds the testbed binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	return goCmd("build", "-o", binaryPath, ".")
}

// Runs the unit tests of every package. The Vulkan backend is only compiled, its
// tests do not need a device.
func (Test) Unit() error {
	return goCmd("test", "-count=1", "./...")
}

// Runs the engine packages under the race detector, which needs cgo.
func (Test) Race() error {
	_, err := executeCmd("go",
		withArgs("test", "-race", "-count=1", "./engine/..."),
		withEnv("CGO_ENABLED=1"),
		withStream(),
	)
	return err
}
