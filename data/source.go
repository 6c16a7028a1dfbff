package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source 是 CSV 数据源。
type Source interface {
	// Open 打开数据流，调用方负责关闭
	Open(ctx context.Context) (io.ReadCloser, error)
	// String 用于日志
	String() string
}

// FileSource 从本地文件读取。
type FileSource struct {
	Path string
}

func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	return f, nil
}

func (s *FileSource) String() string { return "file://" + s.Path }

// S3Client S3 兼容协议客户端接口（不直接依赖具体 SDK，支持依赖注入）
// S3 兼容协议支持 AWS S3、阿里云 OSS、腾讯云 COS、MinIO 等
type S3Client interface {
	// GetObject 获取对象内容
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3Source 从 S3 兼容对象存储读取。
type S3Source struct {
	Client S3Client
	Bucket string
	Key    string
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("s3 source: client not set")
	}
	rc, err := s.Client.GetObject(ctx, s.Bucket, s.Key)
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	return rc, nil
}

func (s *S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }

// HTTPSource 通过 HTTP GET 读取。
type HTTPSource struct {
	URL    string
	Client *http.Client // 为空时使用 10s 超时的默认客户端
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: status=%d, body=%s", s.URL, resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

func (s *HTTPSource) String() string { return s.URL }

// ParseSource 按 URI 选择数据源：
//   - s3://bucket/key      S3Source（client 由调用方注入，可为 nil，Open 时报错）
//   - http:// / https://   HTTPSource
//   - 其他                  本地路径（可带 file:// 前缀）
func ParseSource(uri string, s3 S3Client) (Source, error) {
	switch {
	case uri == "":
		return nil, fmt.Errorf("empty source uri")
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 uri %q, want s3://bucket/key", uri)
		}
		return &S3Source{Client: s3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return &HTTPSource{URL: uri}, nil
	default:
		return &FileSource{Path: strings.TrimPrefix(uri, "file://")}, nil
	}
}
