package requestid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntoFrom(t *testing.T) {
	t.Parallel()

	require.Empty(t, From(context.Background()))

	ctx := Into(context.Background(), "rid-1")
	require.Equal(t, "rid-1", From(ctx))

	// Чужое значение по строковому ключу не пересекается с нашим.
	type otherKey string
	ctx2 := context.WithValue(context.Background(), otherKey("request_id"), "x")
	require.Empty(t, From(ctx2))
}
