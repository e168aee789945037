// Copyright © 2024 The ELPS authors

//go:build !unix

package compile

import "os/exec"

// killProcessGroup leaves the default cancellation, which kills only the
// direct child.
func killProcessGroup(*exec.Cmd) {}
