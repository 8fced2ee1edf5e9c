package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunExitCodes(t *testing.T) {
	assert.Equal(t, 0, Main([]string{"workloads"}))
	assert.Equal(t, 1, Main([]string{"no-such-command"}))
	assert.Equal(t, 1, Main([]string{"sweep", "--min-pow", "5", "--max-pow", "3", "--source", "none"}))
}
