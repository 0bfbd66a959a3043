package internal

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyBufferWithContext(t *testing.T) {
	var buf bytes.Buffer
	s := &Sizer{}

	n, err := CopyBufferWithContext(context.Background(), io.MultiWriter(&buf, s), strings.NewReader("hello world"), make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", buf.String())
	assert.Equal(t, int64(11), s.Size)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyBufferWithContext(ctx, &buf, strings.NewReader("more"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
