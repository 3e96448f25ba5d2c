package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
	"github.com/snakr/snakr-api/storage"
)

// ReceiptService принимает изображения чеков. Распознавание и превращение
// чека в предметы выполняется отдельным процессом; здесь только приём файла
// и запись в журнал.
type ReceiptService interface {
	UploadReceipt(ctx context.Context, householdID, userID, contentType string, image io.Reader) (*models.Receipt, error)
	GetReceiptByID(ctx context.Context, householdID, receiptID, userID string) (*models.Receipt, error)
	ListHouseholdReceipts(ctx context.Context, householdID, userID string) ([]*models.Receipt, error)
}

type receiptService struct {
	receiptRepo repositories.ReceiptRepository
	access      AccessService
	uploader    storage.FileUploader
	events      EventService
	logger      *slog.Logger
}

// NewReceiptService принимает uploader == nil, когда хранилище не
// сконфигурировано: загрузка тогда возвращает ErrUploadsDisabled.
func NewReceiptService(
	receiptRepo repositories.ReceiptRepository,
	access AccessService,
	uploader storage.FileUploader,
	events EventService,
	logger *slog.Logger,
) ReceiptService {
	return &receiptService{
		receiptRepo: receiptRepo,
		access:      access,
		uploader:    uploader,
		events:      events,
		logger:      logger,
	}
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".bin"
	}
}

func (s *receiptService) UploadReceipt(ctx context.Context, householdID, userID, contentType string, image io.Reader) (*models.Receipt, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}

	key := fmt.Sprintf("receipts/%s/%s%s", householdID, uuid.NewString(), extensionForContentType(contentType))
	result, err := s.uploader.Upload(ctx, key, contentType, image)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt image: %w", err)
	}

	receipt := &models.Receipt{
		HouseholdID: householdID,
		UploaderID:  userID,
		Status:      models.ReceiptUploaded,
		StorageKey:  &result.Key,
	}
	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		// Строка не записалась — убираем осиротевший объект из хранилища.
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.Error("failed to delete orphaned receipt object",
				slog.String("key", result.Key),
				slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to create receipt record: %w", err)
	}
	receipt.ImageURL = result.Location

	s.events.Record(ctx, householdID, userID, models.EventReceiptUploaded, map[string]any{
		"receipt_id": receipt.ID,
	})

	s.logger.Info("receipt uploaded",
		slog.String("receipt_id", receipt.ID),
		slog.String("household_id", householdID))

	return receipt, nil
}

func (s *receiptService) GetReceiptByID(ctx context.Context, householdID, receiptID, userID string) (*models.Receipt, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	receipt, err := s.receiptRepo.GetByID(ctx, householdID, receiptID)
	if err != nil {
		if errors.Is(err, repositories.ErrReceiptNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt %s: %w", receiptID, err)
	}

	s.attachImageURL(receipt)
	return receipt, nil
}

func (s *receiptService) ListHouseholdReceipts(ctx context.Context, householdID, userID string) ([]*models.Receipt, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	receipts, err := s.receiptRepo.ListByHouseholdID(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts for household %s: %w", householdID, err)
	}

	for _, receipt := range receipts {
		s.attachImageURL(receipt)
	}
	return receipts, nil
}

func (s *receiptService) attachImageURL(receipt *models.Receipt) {
	if s.uploader != nil && receipt.StorageKey != nil {
		receipt.ImageURL = s.uploader.GetPublicURL(*receipt.StorageKey)
	}
}
