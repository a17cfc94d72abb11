//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Renders FACETEX_TEXTURE (default env.toml) from the directory in
// FACETEX_DIR, re-rendering on every change.
func (Run) Watch() error {
	mg.Deps(Build.Viewer)
	dir := os.Getenv("FACETEX_DIR")
	if dir == "" {
		dir = "."
	}
	tex := os.Getenv("FACETEX_TEXTURE")
	if tex == "" {
		tex = "env.toml"
	}
	fmt.Println("Watching", dir)
	_, err := executeCmd("bin/facetex",
		withArgs("-texture", tex, "-watch", "-v"),
		withEnv("PTEX_SEARCHPATH="+dir),
		withStream())
	return err
}
