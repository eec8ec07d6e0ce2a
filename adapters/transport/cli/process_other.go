//go:build !unix

package cli

import "os/exec"

// killProcessGroupOnCancel keeps the default behaviour of killing the direct child
func killProcessGroupOnCancel(cmd *exec.Cmd) {}
