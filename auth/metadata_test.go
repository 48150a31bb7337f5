package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectProjectID_OffGCEReturnsEmpty(t *testing.T) {
	// The sandbox this test runs in is never a GCE/GKE instance, so
	// metadata.OnGCE() is false and DetectProjectID must not error.
	id, err := DetectProjectID()
	assert.NoError(t, err)
	assert.Empty(t, id)
}
