package report

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type restyDownloader struct {
	client *resty.Client
}

// NewDownloader builds the HTTP fetcher for generated report files.
func NewDownloader() Downloader {
	return &restyDownloader{
		client: resty.New().
			SetTimeout(2 * time.Minute).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second),
	}
}

func (d *restyDownloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("report download returned %s", resp.Status())
	}
	return resp.Body(), nil
}
