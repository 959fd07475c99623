//go:build tools
// +build tools

// Package tools pins code generators used through go generate (mockgen) as module
// dependencies so go.mod and go.sum stay in sync with them.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
