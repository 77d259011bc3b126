package errors

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("sync run: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{
			name: "network",
			err:  &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")},
			want: "network",
		},
		{
			name: "innermost type wins",
			err:  fmt.Errorf("outer: %w", &os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}),
			want: "errors_errorstring",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}
