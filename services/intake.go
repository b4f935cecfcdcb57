// Package services holds the intake orchestration: validate, resolve the
// dealer folder and relay documents to the storage provider.
package services

import (
	"context"
	"io"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/cppla/dealerintake/metrics"
	"github.com/cppla/dealerintake/models"
	"github.com/cppla/dealerintake/storage"
	"github.com/cppla/dealerintake/utils"
)

const rootCacheKey = "root:" + models.RegistrationRootName

// FolderCache remembers folder IDs between requests.
type FolderCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, id string) error
}

// Attachment describes a received file without its content.
type Attachment struct {
	Filename string
	MimeType string
	Size     int64
}

// Document is an attachment whose content can be streamed to the provider.
type Document struct {
	Attachment
	Body io.Reader
}

// IntakeRequest is the validated shape of an upload request.
type IntakeRequest struct {
	DealersCode    string      `json:"dealersCode"`
	DealershipName string      `json:"dealershipName"`
	SelfPassport   *Attachment `json:"selfPassport"`
	SpousePassport *Attachment `json:"spousePassport"`
}

// Normalize trims the text fields.
func (r IntakeRequest) Normalize() IntakeRequest {
	r.DealersCode = strings.TrimSpace(r.DealersCode)
	r.DealershipName = strings.TrimSpace(r.DealershipName)
	return r
}

// Validate requires both text fields and the self document. The returned
// error is a KindValidation AppError listing every missing field.
func (r IntakeRequest) Validate() error {
	r = r.Normalize()
	err := validation.ValidateStruct(&r,
		validation.Field(&r.DealersCode, validation.Required.Error("dealersCode is required")),
		validation.Field(&r.DealershipName, validation.Required.Error("dealershipName is required")),
		validation.Field(&r.SelfPassport, validation.NotNil.Error("selfPassport file is required")),
	)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validation.Errors)
	if !ok {
		return utils.NewValidationError(err.Error())
	}
	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, verrs[k].Error())
	}
	return utils.NewValidationError(strings.Join(msgs, "; "))
}

// Submission is a request whose attachments are ready to stream.
type Submission struct {
	DealersCode    string
	DealershipName string
	Self           *Document
	Spouse         *Document
}

func (s Submission) request() IntakeRequest {
	req := IntakeRequest{DealersCode: s.DealersCode, DealershipName: s.DealershipName}
	if s.Self != nil {
		req.SelfPassport = &s.Self.Attachment
	}
	if s.Spouse != nil {
		req.SpousePassport = &s.Spouse.Attachment
	}
	return req.Normalize()
}

// Receipt reports where the documents ended up.
type Receipt struct {
	Folder    models.DealerFolder     `json:"folder"`
	Documents []models.StoredDocument `json:"documents"`
}

// IntakeService relays dealer documents into the storage provider. It keeps no
// per-request state and is safe for concurrent use.
type IntakeService struct {
	store  storage.Provider
	rootID string
	cache  FolderCache
	logger *zap.Logger
}

type IntakeOption func(*IntakeService)

// WithRootFolderID skips the registration root bootstrap.
func WithRootFolderID(id string) IntakeOption {
	return func(s *IntakeService) { s.rootID = strings.TrimSpace(id) }
}

// WithFolderCache caches the bootstrapped registration root ID.
func WithFolderCache(c FolderCache) IntakeOption {
	return func(s *IntakeService) { s.cache = c }
}

func WithLogger(l *zap.Logger) IntakeOption {
	return func(s *IntakeService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewIntakeService(store storage.Provider, opts ...IntakeOption) *IntakeService {
	s := &IntakeService{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores the self document and, when present, the spouse document in the
// dealer's folder. Uploads run sequentially. A failure at any step aborts the
// request; folders created and documents uploaded before it are kept.
func (s *IntakeService) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	req := sub.request()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("dealers_code", req.DealersCode), zap.String("dealership_name", req.DealershipName))

	rootID, err := s.resolveRoot(ctx)
	if err != nil {
		log.Error("resolve registration folder failed", zap.Error(err))
		return nil, err
	}

	folder, err := s.ensureDealerFolder(ctx, models.DealerFolderName(req.DealersCode, req.DealershipName), rootID)
	if err != nil {
		log.Error("resolve dealer folder failed", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("folder", folder.Name), zap.String("folder_id", folder.ID))

	receipt := &Receipt{Folder: folder}
	uploads := []struct {
		kind models.DocumentKind
		doc  *Document
	}{
		{models.DocumentSelf, sub.Self},
		{models.DocumentSpouse, sub.Spouse},
	}
	for _, u := range uploads {
		if u.doc == nil {
			continue
		}
		stored, err := s.upload(ctx, folder.ID, u.kind, req.DealershipName, u.doc)
		if err != nil {
			log.Error("upload document failed", zap.String("kind", string(u.kind)), zap.Int("already_uploaded", len(receipt.Documents)), zap.Error(err))
			return nil, err
		}
		log.Info("document uploaded", zap.String("name", stored.Name), zap.String("file_id", stored.ID))
		receipt.Documents = append(receipt.Documents, stored)
	}
	return receipt, nil
}

// resolveRoot returns the configured root, or finds or creates a folder named
// "registration" anywhere in the provider.
func (s *IntakeService) resolveRoot(ctx context.Context) (string, error) {
	if s.rootID != "" {
		return s.rootID, nil
	}
	if s.cache != nil {
		id, ok, err := s.cache.Get(ctx, rootCacheKey)
		if err != nil {
			s.logger.Warn("folder cache read failed", zap.Error(err))
		} else if ok {
			return id, nil
		}
	}

	id, found, err := s.store.FindFolder(ctx, models.RegistrationRootName, "")
	if err != nil {
		return "", utils.NewStorageError("find registration folder", err)
	}
	if !found {
		id, err = s.store.CreateFolder(ctx, models.RegistrationRootName, "")
		if err != nil {
			return "", utils.NewStorageError("create registration folder", err)
		}
		s.logger.Info("registration folder created", zap.String("folder_id", id))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rootCacheKey, id); err != nil {
			s.logger.Warn("folder cache write failed", zap.Error(err))
		}
	}
	return id, nil
}

// ensureDealerFolder is a read-then-create. Two concurrent first submissions for
// the same dealer can both miss and create same-named folders.
func (s *IntakeService) ensureDealerFolder(ctx context.Context, name, rootID string) (models.DealerFolder, error) {
	folder := models.DealerFolder{Name: name, ParentID: rootID}

	id, found, err := s.store.FindFolder(ctx, name, rootID)
	if err != nil {
		return folder, utils.NewStorageError("find dealer folder "+name, err)
	}
	if found {
		folder.ID = id
		return folder, nil
	}

	id, err = s.store.CreateFolder(ctx, name, rootID)
	if err != nil {
		return folder, utils.NewStorageError("create dealer folder "+name, err)
	}
	metrics.DealerFoldersCreated.Inc()
	s.logger.Info("dealer folder created", zap.String("folder", name), zap.String("folder_id", id))
	folder.ID = id
	folder.Created = true
	return folder, nil
}

func (s *IntakeService) upload(ctx context.Context, folderID string, kind models.DocumentKind, dealershipName string, doc *Document) (models.StoredDocument, error) {
	name := models.DocumentName(kind, dealershipName, doc.Filename)
	stored := models.StoredDocument{Name: name, Kind: kind, MimeType: doc.MimeType, FolderID: folderID}

	id, err := s.store.UploadFile(ctx, doc.Body, name, doc.MimeType, folderID)
	if err != nil {
		return stored, utils.NewStorageError("upload "+name, err)
	}
	metrics.DocumentsUploaded.WithLabelValues(string(kind)).Inc()
	stored.ID = id
	return stored, nil
}
