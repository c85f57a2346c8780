package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/assetcache"
	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/store"
)

const CName = "uploader"

var log = logger.NewNamed(CName)

var ErrStorageWrite = errors.New("storage write failed")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func New() AssetUploader {
	return new(uploader)
}

type UploadRequest struct {
	FieldName string
	FileType  domain.FileType
	// Name is the client file name, sanitized before use
	Name  string
	Owner domain.UsageKey
	Data  io.Reader
	Size  int64
}

type UploadResult struct {
	Url string
	// Replaced is the pending url previously staged in the slot, if any
	Replaced string
}

type SwapResult struct {
	Swapped []domain.FileType
	Errors  []error
}

// AssetUploader stores node assets and reconciles upload buffers.
type AssetUploader interface {
	// Upload writes the file and stages it in buf, the caller being the only
	// writer of buf. The pending upload it replaced in the same slot is
	// returned, the caller discards it once buf is persisted.
	Upload(ctx context.Context, req UploadRequest, buf domain.UploadBuffer) (res UploadResult, err error)
	// Discard deletes an asset of this bucket. Failures are logged only.
	Discard(ctx context.Context, owner domain.UsageKey, url string)
	// SwapBuffer moves staged urls of the node into their fields. An asset is
	// deleted only after its replacement was assigned.
	SwapBuffer(ctx context.Context, node *domain.Node) SwapResult
	PathFromUrl(url string) (path string, ok bool)
	app.Component
}

type uploader struct {
	store     store.Store
	cache     assetcache.AssetCache
	urlPrefix string
}

func (u *uploader) Init(a *app.App) (err error) {
	u.store = a.MustComponent(store.CName).(store.Store)
	u.cache = a.MustComponent(assetcache.CName).(assetcache.AssetCache)
	conf := a.MustComponent("config").(configGetter).GetUpload()
	if conf.BucketName == "" {
		return fmt.Errorf("upload bucket name is empty")
	}
	u.urlPrefix = conf.BaseUrl + conf.BucketName + "/"
	return
}

func (u *uploader) Name() (name string) {
	return CName
}

func (u *uploader) Upload(ctx context.Context, req UploadRequest, buf domain.UploadBuffer) (res UploadResult, err error) {
	if !req.FileType.Valid() {
		return res, fmt.Errorf("%w: %q", domain.ErrUnknownFileType, req.FileType)
	}
	if buf == nil {
		return res, fmt.Errorf("upload buffer is nil")
	}
	path := AssetPath(req.FileType, req.Owner.String(), uuid.New(), req.Name)
	if path, err = u.store.Save(ctx, store.File{Path: path, ContentSize: req.Size, Reader: req.Data}); err != nil {
		return res, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	res.Url = u.urlPrefix + path

	course := req.Owner.Course
	if prev, replaced := buf.Put(req.FileType, domain.BufferEntry{FieldName: req.FieldName, Url: res.Url}); replaced && prev.Url != res.Url {
		res.Replaced = prev.Url
	}

	asset := domain.StoredAsset{
		Key:         domain.AssetKey{Course: course, Name: domain.AssetName(path)},
		Path:        path,
		Url:         res.Url,
		FileType:    req.FileType,
		ContentType: store.File{Path: path}.ContentType(),
		Size:        req.Size,
		Owner:       req.Owner.String(),
		CreatedAt:   time.Now().Unix(),
	}
	if cerr := u.cache.Set(ctx, asset); cerr != nil {
		log.Warn("can't cache asset", zap.String("path", path), zap.Error(cerr))
	}
	log.Info("asset uploaded",
		zap.String("owner", asset.Owner),
		zap.String("fileType", string(req.FileType)),
		zap.String("path", path),
	)
	return res, nil
}

func (u *uploader) Discard(ctx context.Context, owner domain.UsageKey, url string) {
	if url == "" {
		return
	}
	u.deleteAsset(ctx, owner.Course, url, "discarded")
}

func (u *uploader) SwapBuffer(ctx context.Context, node *domain.Node) (res SwapResult) {
	for _, ft := range node.Buffer.Slots() {
		entry := node.Buffer[ft]
		prev, _ := node.StringField(entry.FieldName)
		if err := node.SetField(entry.FieldName, entry.Url); err != nil {
			log.Warn("can't assign uploaded asset",
				zap.String("key", node.Id),
				zap.String("field", entry.FieldName),
				zap.Error(err),
			)
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", ft, err))
			continue
		}
		delete(node.Buffer, ft)
		res.Swapped = append(res.Swapped, ft)
		if prev != "" && prev != entry.Url {
			u.deleteAsset(ctx, node.Location.Course, prev, "superseded")
		}
		log.Info("swap performed",
			zap.String("key", node.Id),
			zap.String("field", entry.FieldName),
			zap.String("url", entry.Url),
		)
	}
	return
}

func (u *uploader) PathFromUrl(url string) (path string, ok bool) {
	path, ok = strings.CutPrefix(url, u.urlPrefix)
	return path, ok && path != ""
}

// deleteAsset removes an asset of this bucket. Failures are logged only.
func (u *uploader) deleteAsset(ctx context.Context, course domain.CourseKey, url, reason string) {
	path, ok := u.PathFromUrl(url)
	if !ok {
		log.Debug("asset is not stored in bucket", zap.String("url", url))
		return
	}
	exists, err := u.store.Exists(ctx, path)
	if err != nil {
		log.Warn("can't check asset", zap.String("path", path), zap.Error(err))
		return
	}
	if !exists {
		log.Debug("asset already gone", zap.String("path", path))
		return
	}
	if err = u.store.Delete(ctx, path); err != nil {
		log.Warn("can't delete asset", zap.String("path", path), zap.String("reason", reason), zap.Error(err))
		return
	}
	if err = u.cache.Delete(ctx, domain.AssetKey{Course: course, Name: domain.AssetName(path)}); err != nil {
		log.Warn("can't evict asset", zap.String("path", path), zap.Error(err))
	}
	log.Info("asset deleted", zap.String("path", path), zap.String("reason", reason))
}

// AssetPath is {type prefix}/{owner hash}/{id}_{safe name}.
func AssetPath(ft domain.FileType, owner string, id uuid.UUID, name string) string {
	return ft.Prefix() + "/" + ownerHash(owner) + "/" + id.String() + "_" + SanitizeName(name)
}

// SanitizeName keeps [A-Za-z0-9._-] only.
func SanitizeName(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "")
	if strings.Trim(safe, ".") == "" {
		return "file"
	}
	return safe
}

func ownerHash(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:16])
}
