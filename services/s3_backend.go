package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"filehub-manager/models"
)

// S3Backend S3 兼容对象存储后端。目录以 "key/" 占位对象表示。
type S3Backend struct {
	client        *s3.Client
	uploader      *manager.Uploader
	presigner     *s3.PresignClient
	bucket        string
	region        string
	prefix        string
	endpoint      string
	customDomain  string
	useHTTPS      bool
	aclType       string
	presignExpire time.Duration
}

func NewS3Backend(cfg *models.StorageConfig, presignExpire time.Duration) (*S3Backend, error) {
	if cfg.Region == "" || cfg.BucketName == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: S3 config requires region/bucket/credentials", ErrConfigInvalid)
	}

	ctx := context.TODO()

	var awsCfg aws.Config
	var err error

	if cfg.EndpointURL != "" {
		// 自定义endpoint（如MinIO）
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:           cfg.EndpointURL,
					SigningRegion: cfg.Region,
				}, nil
			})

		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithEndpointResolverWithOptions(customResolver),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			),
		)
	} else {
		// 标准AWS S3
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to load AWS config: %v", ErrConfigInvalid, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.UsePathStyle = true
		}
	})

	aclType := cfg.ACLType
	if aclType == "" {
		aclType = models.ACLPrivate
	}
	if presignExpire <= 0 {
		presignExpire = 5 * time.Minute
	}

	return &S3Backend{
		client:        client,
		uploader:      manager.NewUploader(client),
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.BucketName,
		region:        cfg.Region,
		prefix:        strings.Trim(cfg.PathPrefix, "/"),
		endpoint:      cfg.EndpointURL,
		customDomain:  cfg.CustomDomain,
		useHTTPS:      cfg.UseHTTPS,
		aclType:       aclType,
		presignExpire: presignExpire,
	}, nil
}

func (b *S3Backend) Kind() string { return "S3" }

// joinKey 把逻辑路径映射为 path_prefix 下的对象 key（不带首 '/'）
func (b *S3Backend) joinKey(logical string) (string, error) {
	norm, err := NormalizePath(logical)
	if err != nil {
		return "", err
	}
	rel := strings.TrimPrefix(norm, "/")
	if b.prefix == "" {
		return rel, nil
	}
	if rel == "" {
		return b.prefix, nil
	}
	return b.prefix + "/" + rel, nil
}

// dirKey 目录前缀形式：非空时必定以 '/' 结尾
func (b *S3Backend) dirKey(logical string) (string, error) {
	key, err := b.joinKey(logical)
	if err != nil {
		return "", err
	}
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return key, nil
}

func (b *S3Backend) List(ctx context.Context, path string, opts ListOptions) (*ListResult, error) {
	prefix, err := b.dirKey(path)
	if err != nil {
		return nil, err
	}
	norm, _ := NormalizePath(path)
	result := &ListResult{CurrentPath: norm}

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Err(err)
		}
		for _, common := range page.CommonPrefixes {
			key := aws.ToString(common.Prefix)
			name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
			if name == "" || !matchSearch(name, opts.Search) {
				continue
			}
			result.Items = append(result.Items, ListEntry{Name: name, Type: EntryTypeDirectory})
		}
		for _, content := range page.Contents {
			key := aws.ToString(content.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue // 目录占位对象
			}
			name := strings.TrimPrefix(key, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			if !matchSearch(name, opts.Search) || !matchFileType(name, opts.FileType) {
				continue
			}
			entry := ListEntry{
				Name:     name,
				Type:     EntryTypeFile,
				MimeType: mimeByName(name),
				Size:     aws.ToInt64(content.Size),
			}
			if content.LastModified != nil {
				t := content.LastModified.UTC()
				entry.LastModified = &t
			}
			result.Items = append(result.Items, entry)
		}
	}
	return result, nil
}

func (b *S3Backend) Stat(ctx context.Context, path string) (*StatInfo, error) {
	norm, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	// 根不是对象，HeadObject/前缀探测对它都无意义
	if norm == "/" {
		return &StatInfo{IsDir: true}, nil
	}
	key, err := b.joinKey(norm)
	if err != nil {
		return nil, err
	}
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		st := &StatInfo{Size: aws.ToInt64(head.ContentLength), MimeType: mimeByName(path)}
		if head.LastModified != nil {
			t := head.LastModified.UTC()
			st.ModTime = &t
		}
		return st, nil
	}
	// 对象不存在时再探一次目录前缀
	out, lerr := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if lerr != nil {
		return nil, wrapS3Err(lerr)
	}
	if aws.ToInt32(out.KeyCount) > 0 {
		return &StatInfo{IsDir: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
}

func (b *S3Backend) Write(ctx context.Context, dir, name string, content io.Reader, size int64, mimeType string) error {
	prefix, err := b.dirKey(dir)
	if err != nil {
		return err
	}
	if mimeType == "" {
		mimeType = mimeByName(name)
	}
	_, err = b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(prefix + name),
		Body:        content,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return wrapS3Err(err)
	}
	return nil
}

func (b *S3Backend) MkDir(ctx context.Context, parent, name string) error {
	prefix, err := b.dirKey(parent)
	if err != nil {
		return err
	}
	folderKey := prefix + strings.Trim(name, "/") + "/"
	exists, err := b.prefixExists(ctx, folderKey)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDestinationExists, name)
	}
	// 创建一个占位对象
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(folderKey),
	})
	if err != nil {
		return wrapS3Err(err)
	}
	return nil
}

func (b *S3Backend) Rename(ctx context.Context, oldPath, newPath string) error {
	st, err := b.Stat(ctx, oldPath)
	if err != nil {
		return err
	}
	if st.IsDir {
		srcPrefix, err := b.dirKey(oldPath)
		if err != nil {
			return err
		}
		dstPrefix, err := b.dirKey(newPath)
		if err != nil {
			return err
		}
		if exists, err := b.prefixExists(ctx, dstPrefix); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: %s", ErrDestinationExists, newPath)
		}
		return b.relocatePrefix(ctx, srcPrefix, dstPrefix, true)
	}

	srcKey, err := b.joinKey(oldPath)
	if err != nil {
		return err
	}
	dstKey, err := b.joinKey(newPath)
	if err != nil {
		return err
	}
	if _, err := b.Stat(ctx, newPath); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, newPath)
	}
	if err := b.copyObject(ctx, srcKey, dstKey); err != nil {
		return err
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return wrapS3Err(err)
	}
	return nil
}

func (b *S3Backend) Move(ctx context.Context, sourcePaths []string, destinationPath string) []OpResult {
	return b.relocate(ctx, sourcePaths, destinationPath, true)
}

func (b *S3Backend) Copy(ctx context.Context, sourcePaths []string, destinationPath string) []OpResult {
	return b.relocate(ctx, sourcePaths, destinationPath, false)
}

func (b *S3Backend) relocate(ctx context.Context, sourcePaths []string, destinationPath string, deleteSource bool) []OpResult {
	results := make([]OpResult, 0, len(sourcePaths))
	dstPrefix, err := b.dirKey(destinationPath)
	if err != nil {
		for _, p := range sourcePaths {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "目标路径非法"})
		}
		return results
	}

	for _, p := range sourcePaths {
		st, err := b.Stat(ctx, p)
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "源路径不存在"})
			continue
		}
		_, base := SplitPath(mustNormalize(p))
		if st.IsDir {
			srcPrefix, kerr := b.dirKey(p)
			if kerr != nil {
				results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "源路径非法"})
				continue
			}
			err = b.relocatePrefix(ctx, srcPrefix, dstPrefix+base+"/", deleteSource)
		} else {
			srcKey, kerr := b.joinKey(p)
			if kerr != nil {
				results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "源路径非法"})
				continue
			}
			err = b.copyObject(ctx, srcKey, dstPrefix+base)
			if err == nil && deleteSource {
				_, derr := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(b.bucket),
					Key:    aws.String(srcKey),
				})
				if derr != nil {
					err = wrapS3Err(derr)
				}
			}
		}
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "操作失败：" + err.Error()})
			continue
		}
		results = append(results, OpResult{Path: p, Status: OpStatusSuccess})
	}
	return results
}

func (b *S3Backend) Delete(ctx context.Context, paths []string) []OpResult {
	results := make([]OpResult, 0, len(paths))
	for _, p := range paths {
		st, err := b.Stat(ctx, p)
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "路径不存在"})
			continue
		}
		var keys []string
		if st.IsDir {
			prefix, kerr := b.dirKey(p)
			if kerr != nil {
				results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "路径非法"})
				continue
			}
			keys, err = b.listKeys(ctx, prefix)
			if err != nil {
				results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "列举失败：" + err.Error()})
				continue
			}
		} else {
			key, kerr := b.joinKey(p)
			if kerr != nil {
				results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "路径非法"})
				continue
			}
			keys = []string{key}
		}
		if err := b.deleteKeys(ctx, keys); err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "删除失败：" + err.Error()})
			continue
		}
		results = append(results, OpResult{Path: p, Status: OpStatusSuccess})
	}
	return results
}

func (b *S3Backend) ResolveURL(ctx context.Context, path string, download bool) (*ResolvedURL, error) {
	key, err := b.joinKey(path)
	if err != nil {
		return nil, err
	}
	_, name := SplitPath(mustNormalize(path))

	// private：限时预签名跳转；public/custom：直链跳转
	if b.aclType == models.ACLPrivate {
		// 预签名本身不访问服务端，先确认对象存在
		if _, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return nil, wrapS3Err(err)
		}
		input := &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		}
		if download {
			input.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", name))
		}
		req, err := b.presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
			opts.Expires = b.presignExpire
		})
		if err != nil {
			return nil, wrapS3Err(err)
		}
		return &ResolvedURL{Mode: URLModeRedirect, URL: req.URL, FileName: name, MimeType: mimeByName(name)}, nil
	}

	return &ResolvedURL{Mode: URLModeRedirect, URL: b.publicURL(key), FileName: name, MimeType: mimeByName(name)}, nil
}

// publicURL 直链：优先 custom_domain，其次自定义 endpoint，最后桶的公网域名
func (b *S3Backend) publicURL(key string) string {
	scheme := "https"
	if !b.useHTTPS {
		scheme = "http"
	}
	escaped := (&url.URL{Path: "/" + key}).EscapedPath()
	if b.customDomain != "" {
		host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(b.customDomain, "https://"), "http://"), "/")
		return fmt.Sprintf("%s://%s%s", scheme, host, escaped)
	}
	if b.endpoint != "" {
		base := strings.TrimSuffix(b.endpoint, "/")
		return fmt.Sprintf("%s/%s%s", base, b.bucket, escaped)
	}
	return fmt.Sprintf("%s://%s.s3.%s.amazonaws.com%s", scheme, b.bucket, b.region, escaped)
}

func (b *S3Backend) prefixExists(ctx context.Context, prefix string) (bool, error) {
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, wrapS3Err(err)
	}
	return aws.ToInt32(out.KeyCount) > 0, nil
}

func (b *S3Backend) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Err(err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// deleteKeys 批量删除（每批最多 1000 个）
func (b *S3Backend) deleteKeys(ctx context.Context, keys []string) error {
	for i := 0; i < len(keys); i += 1000 {
		end := i + 1000
		if end > len(keys) {
			end = len(keys)
		}
		batch := make([]types.ObjectIdentifier, 0, end-i)
		for _, k := range keys[i:end] {
			batch = append(batch, types.ObjectIdentifier{Key: aws.String(k)})
		}
		_, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: batch},
		})
		if err != nil {
			return wrapS3Err(err)
		}
	}
	return nil
}

func (b *S3Backend) copyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(b.bucket + "/" + srcKey),
	})
	if err != nil {
		return wrapS3Err(err)
	}
	return nil
}

// relocatePrefix 前缀批量复制（可选删源），用于目录级搬移
func (b *S3Backend) relocatePrefix(ctx context.Context, srcPrefix, dstPrefix string, deleteSource bool) error {
	keys, err := b.listKeys(ctx, srcPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.copyObject(ctx, key, dstPrefix+strings.TrimPrefix(key, srcPrefix)); err != nil {
			return err
		}
	}
	if deleteSource {
		return b.deleteKeys(ctx, keys)
	}
	return nil
}

// wrapS3Err 将 S3 错误归到错误分类
func wrapS3Err(err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrPathNotFound, err)
	}
	if errors.As(err, &noBucket) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

func mustNormalize(p string) string {
	norm, err := NormalizePath(p)
	if err != nil {
		return "/"
	}
	return norm
}
