package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		step BuildStep
		want []string
	}{
		{
			name: "push with tags and build arg",
			step: BuildStep{
				Dockerfile: "serving/docker/Dockerfile",
				Context:    "serving/docker",
				BuildArgs:  map[string]string{"DJL_VERSION": "0.25.0"},
				Tags:       []string{"deepjavalibrary/djl-serving:0.25.0-cpu"},
				Push:       true,
			},
			want: []string{
				"buildx", "build",
				"--file", "serving/docker/Dockerfile",
				"--build-arg", "DJL_VERSION=0.25.0",
				"--tag", "deepjavalibrary/djl-serving:0.25.0-cpu",
				"--push",
				"serving/docker",
			},
		},
		{
			name: "load for dry runs",
			step: BuildStep{
				Tags: []string{"djl-serving:cpu-nightly"},
				Load: true,
			},
			want: []string{
				"buildx", "build",
				"--tag", "djl-serving:cpu-nightly",
				"--load",
				".",
			},
		},
		{
			name: "neither push nor load",
			step: BuildStep{
				Tags: []string{"djl-serving:cpu-nightly"},
			},
			want: []string{
				"buildx", "build",
				"--tag", "djl-serving:cpu-nightly",
				".",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildArgs(tt.step))
		})
	}
}
