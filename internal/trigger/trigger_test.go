package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionName(t *testing.T) {
	tests := []struct {
		name  string
		image string
		mode  string
		sk    string
		want  string
	}{
		{
			name:  "plain image",
			image: "djl-serving",
			mode:  "nightly",
			sk:    "2HFj3kLm",
			want:  "djl-serving-nightly-2HFj3kLm",
		},
		{
			name:  "namespaced image flattened",
			image: "deepjavalibrary/djl-serving",
			mode:  "release",
			sk:    "2HFj3kLm",
			want:  "deepjavalibrary-djl-serving-release-2HFj3kLm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, executionName(tt.image, tt.mode, tt.sk))
		})
	}
}
