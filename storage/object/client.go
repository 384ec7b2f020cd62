package object

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
)

// Client talks to the platform's object storage HTTP API with the backend
// service key. Uploads write into private buckets; reads for private objects
// go through time-limited signed URLs.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

var _ core.ObjectStorage = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(conf.Storage.BaseURL, "/"),
		serviceKey: conf.Storage.ServiceKey,
		http:       &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) objectURL(bucket, path string) string {
	return fmt.Sprintf("%s/object/%s/%s", c.baseURL, bucket, path)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("storage API: %s: %s", res.Status, body)
	}
	return body, nil
}

func (c *Client) Upload(ctx context.Context, bucket, path string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(bucket, path), bytes.NewReader(content))
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	req.Header.Set("Content-Type", contentType)

	if _, err = c.do(req); err != nil {
		return errors.Wrapf(err, "uploading %s/%s", bucket, path)
	}
	return nil
}

func (c *Client) CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(map[string]int64{"expiresIn": int64(ttl.Seconds())})
	if err != nil {
		return "", errors.Wrap(err, "encoding sign request")
	}

	u := fmt.Sprintf("%s/object/sign/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "building sign request")
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", errors.Wrapf(err, "signing %s/%s", bucket, path)
	}

	var res struct {
		SignedURL string `json:"signedURL"`
	}
	if err = json.Unmarshal(body, &res); err != nil {
		return "", errors.Wrap(err, "decoding sign response")
	}
	if strings.HasPrefix(res.SignedURL, "/") {
		return c.baseURL + res.SignedURL, nil
	}
	return res.SignedURL, nil
}

func (c *Client) GetPublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, bucket, path)
}

func (c *Client) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(bucket, path), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building download request")
	}

	body, err := c.do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %s/%s", bucket, path)
	}
	return body, nil
}

func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(bucket, path), nil)
	if err != nil {
		return errors.Wrap(err, "building remove request")
	}

	if _, err = c.do(req); err != nil {
		return errors.Wrapf(err, "removing %s/%s", bucket, path)
	}
	return nil
}
