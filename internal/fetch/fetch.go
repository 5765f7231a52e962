// Package fetch downloads the raw lookup file into object storage.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/objstore"
)

// ErrUnexpectedStatus is returned for any response other than 200.
var ErrUnexpectedStatus = errors.New("unexpected status")

// NewClient returns an HTTP client that retries network errors and
// transient server responses.
func NewClient(timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)
	return client
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// Download streams url into name on store and returns the bytes written.
// On a failed copy the upload is cancelled and whatever was written is
// deleted, so no partial object is left behind.
func Download(ctx context.Context, client *resty.Client, url string, store objstore.Store, name string) (int64, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("download %s: %w %d", url, ErrUnexpectedStatus, resp.StatusCode())
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := store.Create(uploadCtx, name)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, body)
	if err != nil {
		cancel()
		_ = w.Close()
		if delErr := store.Delete(ctx, name); delErr != nil && !errors.Is(delErr, objstore.ErrNotExist) {
			err = errors.Join(err, delErr)
		}
		return n, fmt.Errorf("copy %s to %s: %w", url, name, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", name, err)
	}
	return n, nil
}
