package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Host is the registry hostname passed to docker login for Docker Hub.
const Host = "docker.io"

// DockerHub talks to the hub.docker.com v2 API. It is used for the
// release-tag immutability check: release tags are never overwritten, so a
// release run refuses to start if its tag is already published.
type DockerHub struct {
	base     string
	creds    Credentials
	jwtToken string
	http     *http.Client
}

// NewDockerHub creates a Docker Hub API client.
func NewDockerHub(creds Credentials) *DockerHub {
	return &DockerHub{
		base:  "https://hub.docker.com",
		creds: creds,
		http:  http.DefaultClient,
	}
}

// authenticate obtains a JWT from Docker Hub. Cached for the session.
func (d *DockerHub) authenticate(ctx context.Context) error {
	if d.jwtToken != "" {
		return nil
	}
	if d.creds.User == "" || d.creds.Pass == "" {
		return fmt.Errorf("dockerhub: credentials required")
	}

	payload, err := json.Marshal(d.creds)
	if err != nil {
		return fmt.Errorf("dockerhub: marshaling login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.base+"/v2/users/login/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("dockerhub: creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("dockerhub: authentication failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("dockerhub: authentication failed: %d %s", resp.StatusCode, truncate(body, 256))
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		return fmt.Errorf("dockerhub: decoding login response: %w", err)
	}

	d.jwtToken = login.Token
	return nil
}

// TagExists reports whether repo:tag is already published on Docker Hub.
func (d *DockerHub) TagExists(ctx context.Context, repo, tag string) (bool, error) {
	if err := d.authenticate(ctx); err != nil {
		return false, err
	}

	url := fmt.Sprintf("%s/v2/repositories/%s/tags/%s/", d.base, repo, tag)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("dockerhub: creating request: %w", err)
	}
	req.Header.Set("Authorization", "JWT "+d.jwtToken)

	resp, err := d.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("dockerhub: checking tag %s/%s: %w", repo, tag, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("dockerhub: checking tag %s/%s: unexpected status %d", repo, tag, resp.StatusCode)
	}
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
