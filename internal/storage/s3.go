package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "cine-rag"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client archives raw scraped pages in S3/MinIO so movies can be
// re-parsed later without hitting the source sites again.
//
// Layout: movies/{movie-id}/{timestamp}/pages/{source}.html plus a
// manifest.json per archive run.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Manifest describes one archive run for a movie.
type Manifest struct {
	MovieID    string            `json:"movie_id"`
	Title      string            `json:"title"`
	Year       int               `json:"year"`
	ArchivedAt string            `json:"archived_at"`
	Pages      map[string]string `json:"pages"` // source name -> original page URL
}

// ArchivePrefix builds the object prefix for one archive run. Timestamps
// use a filesystem-safe layout so prefixes sort chronologically.
func ArchivePrefix(movieID string, ts time.Time) string {
	return path.Join("movies", movieID, ts.UTC().Format("2006-01-02T15-04-05"))
}

// PutPage writes one source's raw detail page under the archive prefix.
func (c *Client) PutPage(ctx context.Context, prefix, source, html string) error {
	objectName := path.Join(prefix, "pages", source+".html")
	reader := strings.NewReader(html)

	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName, reader, int64(len(html)), minio.PutObjectOptions{
		ContentType: "text/html",
	})
	if err != nil {
		return fmt.Errorf("failed to put page: %w", err)
	}
	return nil
}

// GetPage reads a source's archived page.
func (c *Client) GetPage(ctx context.Context, prefix, source string) (string, error) {
	objectName := path.Join(prefix, "pages", source+".html")

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get page: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	return string(data), nil
}

// PutManifest writes the archive run's manifest JSON.
func (c *Client) PutManifest(ctx context.Context, prefix string, manifest Manifest) error {
	objectName := path.Join(prefix, "manifest.json")

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	reader := bytes.NewReader(data)
	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put manifest: %w", err)
	}
	return nil
}

// GetManifest reads the manifest under an archive prefix.
func (c *Client) GetManifest(ctx context.Context, prefix string) (*Manifest, error) {
	objectName := path.Join(prefix, "manifest.json")

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &manifest, nil
}

// ListArchives returns the archive prefixes for a movie in chronological
// order. Empty when the movie was never archived.
func (c *Client) ListArchives(ctx context.Context, movieID string) ([]string, error) {
	moviePrefix := path.Join("movies", movieID) + "/"
	seen := make(map[string]bool)

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    moviePrefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		rest := strings.TrimPrefix(object.Key, moviePrefix)
		ts, _, found := strings.Cut(rest, "/")
		if !found {
			continue
		}
		seen[path.Join(moviePrefix, ts)] = true
	}

	prefixes := make([]string, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

// LatestArchive returns the most recent archive prefix for a movie, or ""
// when none exists.
func (c *Client) LatestArchive(ctx context.Context, movieID string) (string, error) {
	prefixes, err := c.ListArchives(ctx, movieID)
	if err != nil {
		return "", err
	}
	if len(prefixes) == 0 {
		return "", nil
	}
	return prefixes[len(prefixes)-1], nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
