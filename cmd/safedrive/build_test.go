package main

import (
	"bufio"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirements lists "path version" pairs from the repository go.mod.
func requirements(t *testing.T) [][2]string {
	t.Helper()
	f, err := os.Open("../../go.mod")
	require.NoError(t, err)
	defer f.Close()

	var (
		out   [][2]string
		block bool
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "require (":
			block = true
		case line == ")":
			block = false
		case block && line != "":
			fields := strings.Fields(line)
			out = append(out, [2]string{fields[0], fields[1]})
		}
	}
	require.NoError(t, sc.Err())
	return out
}

func TestGoSumCoversRequirements(t *testing.T) {
	sum, err := os.ReadFile("../../go.sum")
	require.NoError(t, err, "go.sum must be committed")

	reqs := requirements(t)
	require.NotEmpty(t, reqs)
	for _, r := range reqs {
		assert.Contains(t, string(sum), r[0]+" "+r[1]+" h1:", "module zip checksum for %s", r[0])
		assert.Contains(t, string(sum), r[0]+" "+r[1]+"/go.mod h1:", "go.mod checksum for %s", r[0])
	}
}

func TestDockerfileBuildsReadOnly(t *testing.T) {
	b, err := os.ReadFile("../../Dockerfile")
	require.NoError(t, err)
	dockerfile := string(b)

	assert.Contains(t, dockerfile, "COPY go.mod go.sum ./")
	assert.Contains(t, dockerfile, "-mod=readonly")
	assert.NotContains(t, dockerfile, "go mod tidy")
}
