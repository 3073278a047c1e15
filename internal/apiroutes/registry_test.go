package apiroutes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGetSorted(t *testing.T) {
	ClearForTesting()
	defer ClearForTesting()

	Register("/api/progress/:job_id", "GET", "Poll job progress")
	Register("/api/analyze", "POST", "Inspect a media URL")

	routes := Get()
	require.Len(t, routes, 2)
	// Sorted by path regardless of registration order.
	assert.Equal(t, "/api/analyze", routes[0].Path)
	assert.Equal(t, "POST", routes[0].Method)
	assert.Equal(t, "/api/progress/:job_id", routes[1].Path)
	assert.Equal(t, 2, Count())
}

func TestReRegisterReplacesDescription(t *testing.T) {
	ClearForTesting()
	defer ClearForTesting()

	Register("/files/:filename", "GET", "old")
	Register("/files/:filename", "GET", "Serve artifact")

	routes := Get()
	require.Len(t, routes, 1)
	assert.Equal(t, "Serve artifact", routes[0].Description)
	assert.Equal(t, 1, Count())
}

func TestSamePathDifferentMethods(t *testing.T) {
	ClearForTesting()
	defer ClearForTesting()

	Register("/api/download", "POST", "Start a job")
	Register("/api/download", "OPTIONS", "Preflight")

	routes := Get()
	require.Len(t, routes, 2)
	assert.Equal(t, "OPTIONS", routes[0].Method)
	assert.Equal(t, "POST", routes[1].Method)
}

func TestGetReturnsCopy(t *testing.T) {
	ClearForTesting()
	defer ClearForTesting()

	Register("/files/:filename", "GET", "Serve artifact")

	routes := Get()
	routes[0].Path = "/mutated"

	fresh := Get()
	require.Len(t, fresh, 1)
	assert.Equal(t, "/files/:filename", fresh[0].Path)
}
