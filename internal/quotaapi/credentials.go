package quotaapi

import (
	"encoding/json"
	"fmt"
	"os"
)

// credentialsFile is the on-disk shape written by the CLI login flow.
type credentialsFile struct {
	ClaudeAiOauth struct {
		AccessToken string `json:"accessToken"`
	} `json:"claudeAiOauth"`
}

// LoadToken reads the OAuth access token from the credentials file.
// A missing file or empty token reports ErrCredentialMissing; a file
// that exists but does not parse reports ErrCredentialMalformed.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrCredentialMissing, path)
		}
		return "", fmt.Errorf("%w: %v", ErrCredentialMissing, err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialMalformed, err)
	}

	token := creds.ClaudeAiOauth.AccessToken
	if token == "" {
		return "", fmt.Errorf("%w: no access token in %s", ErrCredentialMissing, path)
	}
	return token, nil
}
