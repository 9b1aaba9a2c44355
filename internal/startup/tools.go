package startup

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const toolCheckTimeout = 5 * time.Second

// toolVersion runs `binary -version` and returns the first line of output.
// ffmpeg and ffprobe both answer this way.
func toolVersion(ctx context.Context, binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", binary)
	}

	ctx, cancel := context.WithTimeout(ctx, toolCheckTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", binary, err)
	}

	line, _, _ := bufio.NewReader(bytes.NewReader(output)).ReadLine()
	return strings.TrimSpace(string(line)), nil
}
