package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"precinctwatch/internal/caching"
	"precinctwatch/internal/common"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"
	"precinctwatch/internal/storage"

	"github.com/google/uuid"
)

// DocumentURLExpiry is how long a presigned certification download stays valid.
const DocumentURLExpiry = 15 * time.Minute

type StoreRequest struct {
	Code     string `json:"code"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Precinct string `json:"precinct"`
	Category string `json:"category"`
	UnitCode string `json:"unit_code"`
}

type CertificationRequest struct {
	Type        string  `json:"type"`
	IssuedAt    *string `json:"issued_at"`
	ExpiresAt   *string `json:"expires_at"`
	ReferenceNo *string `json:"reference_no"`
	Notes       *string `json:"notes"`
	Mandatory   *bool   `json:"mandatory"`
}

// StoreRow is one line of the filtered store list.
type StoreRow struct {
	compliance.StoreScore
	OpenActions int `json:"open_actions"`
}

// StoreList carries the matching rows. Total counts them and TotalBeforeFilter
// counts every active store, so callers can show "N of M".
type StoreList struct {
	Filter            compliance.StoreFilter `json:"filter"`
	Total             int                    `json:"total"`
	TotalBeforeFilter int                    `json:"total_before_filter"`
	Stores            []StoreRow             `json:"stores"`
}

type DocumentLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StoreService interface {
	ListFiltered(ctx context.Context, opts compliance.FilterOptions) (*StoreList, error)
	GetBySlug(ctx context.Context, slug string) (*compliance.StoreDetail, error)
	Create(ctx context.Context, req *StoreRequest) (*models.Store, error)
	Update(ctx context.Context, id uuid.UUID, req *StoreRequest) (*models.Store, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddCertification(ctx context.Context, storeID uuid.UUID, req *CertificationRequest) (*models.Certification, error)
	UpdateCertification(ctx context.Context, id uuid.UUID, req *CertificationRequest) (*models.Certification, error)
	DeleteCertification(ctx context.Context, id uuid.UUID) error
	UploadDocument(ctx context.Context, certID uuid.UUID, reader io.Reader, size int64, contentType string) (*models.Certification, error)
	DocumentURL(ctx context.Context, certID uuid.UUID) (*DocumentLink, error)
}

type storeService struct {
	engine    *compliance.Engine
	storeRepo repositories.StoreRepository
	certRepo  repositories.CertificationRepository
	documents storage.DocumentStore
	cache     caching.CacheService
	log       logger.Logger
}

func NewStoreService(engine *compliance.Engine, storeRepo repositories.StoreRepository, certRepo repositories.CertificationRepository, documents storage.DocumentStore, cache caching.CacheService, log logger.Logger) StoreService {
	return &storeService{
		engine:    engine,
		storeRepo: storeRepo,
		certRepo:  certRepo,
		documents: documents,
		cache:     cache,
		log:       log,
	}
}

func (s *storeService) ListFiltered(ctx context.Context, opts compliance.FilterOptions) (*StoreList, error) {
	stores, err := s.storeRepo.ListWithCertifications(ctx, models.StoreListFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	opts.Filter = compliance.ParseStoreFilter(string(opts.Filter))
	scores := s.engine.ScoreStores(stores)
	matched := compliance.FilterStores(scores, opts)
	rows := make([]StoreRow, 0, len(matched))
	for _, score := range matched {
		rows = append(rows, StoreRow{StoreScore: score, OpenActions: score.ActionCount()})
	}
	return &StoreList{
		Filter:            opts.Filter,
		Total:             len(rows),
		TotalBeforeFilter: len(scores),
		Stores:            rows,
	}, nil
}

func (s *storeService) GetBySlug(ctx context.Context, slug string) (*compliance.StoreDetail, error) {
	store, err := s.storeRepo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, fromRepo(err, "store")
	}
	detail := s.engine.StoreDetail(store)
	return &detail, nil
}

func (s *storeService) Create(ctx context.Context, req *StoreRequest) (*models.Store, error) {
	store := &models.Store{ID: uuid.New(), Active: true}
	if err := applyStoreRequest(store, req); err != nil {
		return nil, err
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, fromRepo(err, "store")
	}
	s.invalidate(ctx)
	s.log.Info("Store created", map[string]interface{}{"store_id": store.ID.String(), "code": store.Code})
	return store, nil
}

func (s *storeService) Update(ctx context.Context, id uuid.UUID, req *StoreRequest) (*models.Store, error) {
	store, err := s.storeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "store")
	}
	if err := applyStoreRequest(store, req); err != nil {
		return nil, err
	}
	if err := s.storeRepo.Update(ctx, store); err != nil {
		return nil, fromRepo(err, "store")
	}
	s.invalidate(ctx)
	store.Certifications = nil
	return store, nil
}

func (s *storeService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.storeRepo.SetActive(ctx, id, false); err != nil {
		return fromRepo(err, "store")
	}
	s.invalidate(ctx)
	return nil
}

func (s *storeService) Delete(ctx context.Context, id uuid.UUID) error {
	store, err := s.storeRepo.GetByID(ctx, id)
	if err != nil {
		return fromRepo(err, "store")
	}
	if err := s.storeRepo.Delete(ctx, id); err != nil {
		return fromRepo(err, "store")
	}
	for _, c := range store.Certifications {
		s.removeDocument(ctx, c)
	}
	s.invalidate(ctx)
	s.log.Info("Store deleted", map[string]interface{}{"store_id": id.String()})
	return nil
}

func (s *storeService) AddCertification(ctx context.Context, storeID uuid.UUID, req *CertificationRequest) (*models.Certification, error) {
	if _, err := s.storeRepo.GetByID(ctx, storeID); err != nil {
		return nil, fromRepo(err, "store")
	}
	cert := &models.Certification{ID: uuid.New(), StoreID: storeID, Mandatory: true}
	if err := applyCertificationRequest(cert, req); err != nil {
		return nil, err
	}
	if err := s.certRepo.Create(ctx, cert); err != nil {
		return nil, fromRepo(err, "certification")
	}
	s.invalidate(ctx)
	return cert, nil
}

func (s *storeService) UpdateCertification(ctx context.Context, id uuid.UUID, req *CertificationRequest) (*models.Certification, error) {
	cert, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "certification")
	}
	if err := applyCertificationRequest(cert, req); err != nil {
		return nil, err
	}
	if err := s.certRepo.Update(ctx, cert); err != nil {
		return nil, fromRepo(err, "certification")
	}
	s.invalidate(ctx)
	return cert, nil
}

func (s *storeService) DeleteCertification(ctx context.Context, id uuid.UUID) error {
	cert, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		return fromRepo(err, "certification")
	}
	if err := s.certRepo.Delete(ctx, id); err != nil {
		return fromRepo(err, "certification")
	}
	s.removeDocument(ctx, cert)
	s.invalidate(ctx)
	return nil
}

// UploadDocument stores a scan for the certification, replacing any previous one.
func (s *storeService) UploadDocument(ctx context.Context, certID uuid.UUID, reader io.Reader, size int64, contentType string) (*models.Certification, error) {
	if size <= 0 {
		return nil, invalid("file", "file is empty")
	}
	if size > storage.MaxDocumentSize {
		return nil, invalid("file", "file exceeds %d bytes", storage.MaxDocumentSize)
	}

	cert, err := s.certRepo.GetByID(ctx, certID)
	if err != nil {
		return nil, fromRepo(err, "certification")
	}

	key, err := storage.DocumentKey(cert.ID, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedDocument) {
			return nil, invalid("file", "only PDF, JPEG and PNG documents are accepted")
		}
		return nil, err
	}
	if err := s.documents.Upload(ctx, key, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}
	if err := s.certRepo.SetDocumentKey(ctx, cert.ID, &key); err != nil {
		// The row vanished or the write failed; drop the orphaned object.
		if delErr := s.documents.Delete(ctx, key); delErr != nil {
			s.log.Warn("Failed to remove orphaned document", map[string]interface{}{"key": key, "error": delErr.Error()})
		}
		return nil, fromRepo(err, "certification")
	}

	previous := cert.DocumentKey
	cert.DocumentKey = &key
	if previous != nil && *previous != key {
		s.removeDocument(ctx, &models.Certification{ID: cert.ID, DocumentKey: previous})
	}
	s.log.Info("Certification document uploaded", map[string]interface{}{"certification_id": cert.ID.String(), "size": size})
	return cert, nil
}

func (s *storeService) DocumentURL(ctx context.Context, certID uuid.UUID) (*DocumentLink, error) {
	cert, err := s.certRepo.GetByID(ctx, certID)
	if err != nil {
		return nil, fromRepo(err, "certification")
	}
	if !cert.HasDocument() {
		return nil, fmt.Errorf("document: %w", ErrNotFound)
	}
	url, err := s.documents.PresignedURL(ctx, *cert.DocumentKey, DocumentURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign document: %w", err)
	}
	return &DocumentLink{URL: url, ExpiresAt: time.Now().Add(DocumentURLExpiry)}, nil
}

func (s *storeService) removeDocument(ctx context.Context, cert *models.Certification) {
	if cert == nil || !cert.HasDocument() {
		return
	}
	if err := s.documents.Delete(ctx, *cert.DocumentKey); err != nil {
		s.log.Warn("Failed to delete certification document", map[string]interface{}{"key": *cert.DocumentKey, "error": err.Error()})
	}
}

func (s *storeService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePayloads(ctx); err != nil {
		s.log.Warn("Failed to invalidate dashboard caches", map[string]interface{}{"error": err.Error()})
	}
}

func applyStoreRequest(store *models.Store, req *StoreRequest) error {
	if req == nil {
		return invalid("body", "request body is required")
	}
	if err := common.ValidateRequiredString(req.Code, "code"); err != nil {
		return invalid("code", "%v", err)
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return invalid("name", "%v", err)
	}
	if !models.ValidPrecinct(req.Precinct) {
		return invalid("precinct", "unknown precinct %q", req.Precinct)
	}
	category := models.Category(strings.ToUpper(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		return invalid("category", "category must be one of FB, RETAIL, SERVICES")
	}

	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if slug == "" {
		return invalid("slug", "slug cannot be derived from name")
	}

	store.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	store.Name = strings.TrimSpace(req.Name)
	store.Slug = slug
	store.Precinct = req.Precinct
	store.Category = category
	store.UnitCode = strings.TrimSpace(req.UnitCode)
	return nil
}

func applyCertificationRequest(cert *models.Certification, req *CertificationRequest) error {
	if req == nil {
		return invalid("body", "request body is required")
	}
	certType := models.CertificationType(strings.TrimSpace(req.Type))
	if !certType.Valid() {
		return invalid("type", "unknown certification type %q", req.Type)
	}
	issued, err := common.ParseDate(req.IssuedAt, "issued_at")
	if err != nil {
		return invalid("issued_at", "%v", err)
	}
	expires, err := common.ParseDate(req.ExpiresAt, "expires_at")
	if err != nil {
		return invalid("expires_at", "%v", err)
	}
	if issued != nil && expires != nil && expires.Before(*issued) {
		return invalid("expires_at", "expires_at cannot be before issued_at")
	}
	if err := common.ValidateOptionalString(req.ReferenceNo, "reference_no", 100); err != nil {
		return invalid("reference_no", "%v", err)
	}
	if err := common.ValidateOptionalString(req.Notes, "notes", 1000); err != nil {
		return invalid("notes", "%v", err)
	}

	cert.Type = certType
	cert.IssuedAt = issued
	cert.ExpiresAt = expires
	cert.ReferenceNo = req.ReferenceNo
	cert.Notes = req.Notes
	if req.Mandatory != nil {
		cert.Mandatory = *req.Mandatory
	}
	return nil
}

// Slugify lowercases s and joins runs of letters and digits with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
