package cmd

import (
	"os/exec"
)

// findExecutable wraps exec.LookPath for testability.
var findExecutable = exec.LookPath
