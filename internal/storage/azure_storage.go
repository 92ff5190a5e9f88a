package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"strings"

	"github.com/anime-shed/certscan-go/internal/frame"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobFetcher reads snapshot pictures that an edge camera writes to
// blob storage. Blob URLs are https://<account>.blob.core.windows.net/<container>/<blob>.
type AzureBlobFetcher struct {
	client    *azblob.Client
	maxPixels int
}

// NewAzureBlobFetcher authenticates with a shared account key. Pictures over
// maxPixels are refused; maxPixels <= 0 uses frame.DefaultMaxPixels.
func NewAzureBlobFetcher(accountName, accountKey string, maxPixels int) (*AzureBlobFetcher, error) {
	if accountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureBlobFetcher{client: client, maxPixels: maxPixels}, nil
}

// ParseBlobURL splits a blob URL into container and blob name. The legacy
// form /<container>?blob=<name> is also accepted.
func ParseBlobURL(blobURL string) (container, blob string, err error) {
	parsed, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	path := strings.TrimPrefix(parsed.Path, "/")
	container, blob, _ = strings.Cut(path, "/")
	if blob == "" {
		blob = parsed.Query().Get("blob")
	}
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL %q: container and blob name are required", blobURL)
	}
	return container, blob, nil
}

// FetchImage downloads and decodes the current picture. Service failures
// surface as StatusError so they classify like HTTP snapshot failures.
func (s *AzureBlobFetcher) FetchImage(ctx context.Context, blobURL string) (image.Image, error) {
	container, blob, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return nil, fmt.Errorf("download failed (%s): %w", respErr.ErrorCode, &StatusError{Code: respErr.StatusCode})
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	img, _, err := frame.DecodeImage(io.LimitReader(resp.Body, defaultMaxImageBytes), s.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob image: %w", err)
	}
	return img, nil
}
