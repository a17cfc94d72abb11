//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the viewer and mkcube into bin/.
func (Build) All() {
	mg.SerialDeps(Build.Viewer, Build.Mkcube)
}

// Builds the environment viewer.
func (Build) Viewer() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/facetex", "."), withStream())
	return err
}

// Builds the cube manifest tool.
func (Build) Mkcube() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/mkcube", "./cmd/mkcube"), withStream())
	return err
}
