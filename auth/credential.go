// Package auth implements service-account credential loading and
// validation, JWT-bearer assertion minting, OAuth2 token exchange, and
// access-token caching with refresh-ahead and per-scope coalescing,
// grounded on the teacher's module/jwt_auth.go (JWT construction style)
// and module/pipeline_step_http_call.go (OAuth2 token cache/coalescing
// shape, generalized from client_credentials to the JWT-bearer grant).
package auth

import "encoding/json"

// ServiceAccountCredential is the parsed form of a Google Cloud service
// account JSON key file.
type ServiceAccountCredential struct {
	Type            string `json:"type"`
	ProjectID       string `json:"project_id"`
	PrivateKeyID    string `json:"private_key_id"`
	PrivateKey      string `json:"private_key"`
	ClientEmail     string `json:"client_email"`
	ClientID        string `json:"client_id"`
	AuthURI         string `json:"auth_uri"`
	TokenURI        string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url,omitempty"`
	ClientX509CertURL      string `json:"client_x509_cert_url,omitempty"`
	UniverseDomain  string `json:"universe_domain,omitempty"`
}

// ParseCredential unmarshals a service account JSON blob.
func ParseCredential(data []byte) (*ServiceAccountCredential, error) {
	var c ServiceAccountCredential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
