package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPort(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{name: "unset", env: "", want: 8080},
		{name: "override", env: "9090", want: 9090},
		{name: "garbage", env: "abc", want: 8080},
		{name: "out of range", env: "70000", want: 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.env)
			assert.Equal(t, tt.want, getPort(8080))
		})
	}
}
