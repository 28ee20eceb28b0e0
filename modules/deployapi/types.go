package deployapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/example/book-upload-relay/domain/book"
)

// Deploy is the normalized result of a create deploy call.
type Deploy struct {
	ID      string
	BaseURL string
	// Required maps each destination path the provider does not yet hold to its upload URL.
	Required map[string]string
}

// RequiredPaths returns the required paths in a stable order.
func (d *Deploy) RequiredPaths() []string {
	paths := make([]string, 0, len(d.Required))
	for p := range d.Required {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// PublicURL joins the deploy's base URL with a destination path.
func (d *Deploy) PublicURL(path string) string {
	return d.BaseURL + "/" + strings.TrimPrefix(path, "/")
}

// deployResponse is the wire shape of the provider's create deploy reply.
// The provider has shipped several field names over time; normalize picks one of each.
type deployResponse struct {
	ID             string          `json:"id"`
	DeployID       string          `json:"deploy_id"`
	Required       json.RawMessage `json:"required"`
	UploadRequired json.RawMessage `json:"upload_required"`
	DeploySSLURL   string          `json:"deploy_ssl_url"`
	DeployURL      string          `json:"deploy_url"`
	SSLURL         string          `json:"ssl_url"`
	URL            string          `json:"url"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *deployResponse) normalize(apiBase string, manifest book.PublishManifest) (*Deploy, error) {
	d := &Deploy{
		ID:      firstNonEmpty(r.DeployID, r.ID),
		BaseURL: strings.TrimRight(firstNonEmpty(r.DeploySSLURL, r.DeployURL, r.SSLURL, r.URL), "/"),
	}
	if d.ID == "" {
		return nil, fmt.Errorf("%w: missing deploy id", ErrMalformedResponse)
	}
	if d.BaseURL == "" {
		return nil, fmt.Errorf("%w: missing deploy url", ErrMalformedResponse)
	}

	raw := r.Required
	if isEmptyJSON(raw) {
		raw = r.UploadRequired
	}

	required, err := parseRequired(raw, apiBase, d.ID, manifest)
	if err != nil {
		return nil, err
	}
	d.Required = required
	return d, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseRequired accepts either a path->upload URL object or the provider's documented
// list of SHA-1 digests. Digests are mapped back onto manifest paths and given the
// file upload endpoint of the deploy.
func parseRequired(raw json.RawMessage, apiBase, deployID string, manifest book.PublishManifest) (map[string]string, error) {
	required := make(map[string]string)
	if isEmptyJSON(raw) {
		return required, nil
	}

	switch bytes.TrimSpace(raw)[0] {
	case '{':
		if err := json.Unmarshal(raw, &required); err != nil {
			return nil, fmt.Errorf("%w: required: %v", ErrMalformedResponse, err)
		}
		return required, nil
	case '[':
		var digests []string
		if err := json.Unmarshal(raw, &digests); err != nil {
			return nil, fmt.Errorf("%w: required: %v", ErrMalformedResponse, err)
		}
		wanted := make(map[string]struct{}, len(digests))
		for _, sum := range digests {
			wanted[sum] = struct{}{}
		}
		for path, sum := range manifest {
			if _, ok := wanted[sum]; ok {
				required[path] = fileUploadURL(apiBase, deployID, path)
			}
		}
		return required, nil
	default:
		return nil, fmt.Errorf("%w: unexpected required field %s", ErrMalformedResponse, string(raw))
	}
}

func fileUploadURL(apiBase, deployID, path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/deploys/%s/files/%s", apiBase, url.PathEscape(deployID), strings.Join(segments, "/"))
}
