//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

const configPath = "configs/engine.toml"

// Runs the testbed on the in-memory backend.
func (Run) Headless() error {
	return runTestbed("headless")
}

// Runs the testbed on the Vulkan backend. Needs a Vulkan loader and a device.
func (Run) Vulkan() error {
	return runTestbed("vulkan")
}

func runTestbed(backend string) error {
	mg.Deps(Build.Binary)
	fmt.Printf("Run testbed on %s...\n", backend)
	_, err := executeCmd("./"+binaryPath, withArgs("-config", configPath, "-backend", backend), withStream())
	return err
}
