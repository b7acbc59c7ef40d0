// Package blob talks to the external image store over HTTP: upload a file,
// get back a stable URI, delete by that URI. The menu store treats every
// call here as advisory.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	apiSecret string
	folder    string
}

func NewClient(baseURL, apiKey, apiSecret, folder string) *Client {
	return &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
	}
}

// Upload posts the file and returns the hosted URI.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.WriteField("folder", c.folder); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("blob upload: %s: %s", res.Status, body)
	}
	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("blob upload: empty secure_url")
	}
	return out.SecureURL, nil
}

// Delete destroys the blob behind a previously returned URI.
func (c *Client) Delete(ctx context.Context, ref string) error {
	id, err := c.publicID(ref)
	if err != nil {
		return err
	}
	form := url.Values{"public_id": {id}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/destroy",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("blob destroy: %s", res.Status)
	}
	return nil
}

// publicID extracts "<folder>/<name>" from a hosted URI, dropping the file
// extension, which is the identifier the destroy endpoint expects.
func (c *Client) publicID(ref string) (string, error) {
	idx := strings.Index(ref, c.folder+"/")
	if idx < 0 {
		return "", fmt.Errorf("blob ref %q is not under folder %q", ref, c.folder)
	}
	id := ref[idx:]
	if dot := strings.LastIndex(id, "."); dot > 0 {
		id = id[:dot]
	}
	return id, nil
}

// Disabled is used when no image store is configured: uploads yield an
// empty reference and deletes are no-ops.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, []byte) (string, error) { return "", nil }
func (Disabled) Delete(context.Context, string) error                           { return nil }
