package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rpupo63/portfolio-site-backend/errs"
)

type UploadOptions struct {
	// Upsert overwrites an existing object with the same key.
	Upsert        bool
	ContentType   string
	ContentLength int64
	CacheControl  string

	// OnProgress is called as the body is read with the bytes sent so far
	// and ContentLength (0 when unknown).
	OnProgress func(sent, total int64)
}

type UploadResult struct {
	Key string `json:"Key"`
	ID  string `json:"Id,omitempty"`
}

// UploadFile stores body under bucket/name.
func (c *Client) UploadFile(ctx context.Context, bucket, name string, body io.Reader, opts UploadOptions) (*UploadResult, error) {
	if opts.OnProgress != nil {
		body = &progressReader{r: body, total: opts.ContentLength, fn: opts.OnProgress}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/storage/v1/object/"+objectPath(bucket, name), body, c.bearer(ctx, true))
	if err != nil {
		return nil, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if opts.ContentLength > 0 {
		req.ContentLength = opts.ContentLength
	}
	if opts.Upsert {
		req.Header.Set("x-upsert", "true")
	}
	if opts.CacheControl != "" {
		req.Header.Set("cache-control", opts.CacheControl)
	}

	raw, _, err := c.do(req, "upload "+bucket, failure{
		kind:     errs.ErrUpload,
		keys:     []string{"message", "error"},
		fallback: "Failed to upload file",
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("bucket", bucket).
		Str("name", name).
		Int64("size", opts.ContentLength).
		Msg("Uploaded file")

	result := UploadResult{Key: bucket + "/" + name}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			c.logger.Debug().Err(err).Str("bucket", bucket).Str("name", name).Msg("Unreadable upload response")
			result = UploadResult{Key: bucket + "/" + name}
		}
	}
	return &result, nil
}

// PublicURL returns the unauthenticated URL of an object in a public bucket.
func (c *Client) PublicURL(bucket, name string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, name)
}

func objectPath(bucket, name string) string {
	segments := strings.Split(strings.TrimPrefix(name, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

// FormatProgress renders an upload percentage the way the admin shows it.
func FormatProgress(sent, total int64) string {
	if total <= 0 {
		return strconv.FormatInt(sent, 10) + " bytes"
	}
	return strconv.FormatInt(sent*100/total, 10) + "%"
}
