/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-ratelimit/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	recorder.Info("hello", log.Int("answer", 42))
	recorder.With(log.String("component", "worker")).Error("something failed")

	entry, found := recorder.FindEntry("hello")
	require.True(t, found)
	require.Equal(t, log.LevelInfo, entry.Level)
	field, found := entry.FindField("answer")
	require.True(t, found)
	require.Equal(t, int64(42), field.Int)

	entry, found = recorder.FindEntry("something failed")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)
	field, found = entry.FindField("component")
	require.True(t, found)
	require.Equal(t, "worker", string(field.Bytes))

	require.Len(t, recorder.Entries(), 2)
	recorder.Reset()
	require.Empty(t, recorder.Entries())
}
