package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3ListTimeout bounds metadata calls (list, head). Object bodies are
// streamed without a deadline.
const s3ListTimeout = 30 * time.Second

// S3Options configure access to an S3 or S3-compatible object store.
// Empty fields fall back to the AWS default configuration chain.
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint for S3-compatible stores, e.g. "https://minio.local:9000"
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// s3API is the subset of *s3.Client used by S3FileSystem.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FileSystem implements FileSystemProvider over objects addressed as
// s3://bucket/key. A "directory" is a key prefix ending in "/".
type S3FileSystem struct {
	client s3API
}

var _ FileSystemProvider = (*S3FileSystem)(nil)

// NewS3FileSystem wraps an existing S3 client.
func NewS3FileSystem(client s3API) *S3FileSystem {
	if client == nil {
		panic("client cannot be nil")
	}
	return &S3FileSystem{client: client}
}

// NewS3FileSystemFromConfig builds an S3 client from the AWS default
// configuration chain, overridden by opts.
func NewS3FileSystemFromConfig(opts S3Options) (*S3FileSystem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s3ListTimeout)
	defer cancel()

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewS3FileSystem(client), nil
}

// ParseS3URI splits "s3://bucket/prefix/key" into bucket and key.
// The key may be empty for a bucket root.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 URI %q: %w", uri, err)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, uri)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("missing bucket in S3 URI %q", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (p *S3FileSystem) ReadDir(dirPath string) ([]FileInfo, error) {
	bucket, prefix, err := ParseS3URI(dirPath)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	ctx, cancel := context.WithTimeout(context.Background(), s3ListTimeout)
	defer cancel()

	var result []FileInfo
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dirPath, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			result = append(result, &s3FileInfo{name: name, isDir: true})
		}
		for _, obj := range page.Contents {
			result = append(result, objectInfo(obj, prefix))
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("failed to read directory: %s: %w", dirPath, fs.ErrNotExist)
	}
	return result, nil
}

func objectInfo(obj types.Object, prefix string) *s3FileInfo {
	info := &s3FileInfo{
		name: strings.TrimPrefix(aws.ToString(obj.Key), prefix),
		size: aws.ToInt64(obj.Size),
	}
	if obj.LastModified != nil {
		info.modTime = *obj.LastModified
	}
	if info.name == "" {
		// folder marker object for the prefix itself
		info.isDir = true
	}
	return info
}

func (p *S3FileSystem) Stat(objPath string) (FileInfo, error) {
	bucket, key, err := ParseS3URI(objPath)
	if err != nil {
		return nil, err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return &s3FileInfo{name: path.Base(strings.TrimSuffix(key, "/")), isDir: true}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s3ListTimeout)
	defer cancel()

	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("path not found: %s: %w", objPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", objPath, err)
	}

	info := &s3FileInfo{name: path.Base(key), size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		info.modTime = *out.LastModified
	}
	return info, nil
}

func (p *S3FileSystem) OpenFile(objPath string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(objPath)
	if err != nil {
		return nil, err
	}

	out, err := p.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("file not found: %s: %w", objPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open %s: %w", objPath, err)
	}
	return out.Body, nil
}

func (p *S3FileSystem) ReadFile(objPath string) ([]byte, error) {
	body, err := p.OpenFile(objPath)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (p *S3FileSystem) Join(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + name
}

type s3FileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func (f *s3FileInfo) Name() string       { return f.name }
func (f *s3FileInfo) Size() int64        { return f.size }
func (f *s3FileInfo) ModTime() time.Time { return f.modTime }
func (f *s3FileInfo) IsDir() bool        { return f.isDir }
func (f *s3FileInfo) Sys() interface{}   { return nil }

func (f *s3FileInfo) Mode() fs.FileMode {
	if f.isDir {
		return 0755 | fs.ModeDir
	}
	return 0444
}
