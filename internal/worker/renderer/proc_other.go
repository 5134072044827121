//go:build !unix

package renderer

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
