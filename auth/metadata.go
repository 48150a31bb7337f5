package auth

import (
	"cloud.google.com/go/compute/metadata"
)

// DetectProjectID makes a best-effort, non-fatal attempt to read the
// project ID from the GCE/GKE metadata server. It returns ("", nil) when
// no metadata server is reachable (e.g. running outside Google Cloud),
// rather than treating that as an error — callers fall back to an
// explicit project ID from config or the credential file.
func DetectProjectID() (string, error) {
	if !metadata.OnGCE() {
		return "", nil
	}
	id, err := metadata.ProjectID()
	if err != nil {
		return "", nil
	}
	return id, nil
}
