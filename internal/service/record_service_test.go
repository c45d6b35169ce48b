package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/service"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/mocks"
)

const businessGSTIN = "29ABCDE1234F1ZW"

func TestRecordService_Ingest_Success(t *testing.T) {
	repo := new(mocks.MockRecordRepo)
	svc := service.NewRecordService(repo, 1.0)

	var captured []*domain.InvoiceRecord
	repo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.InvoiceRecord")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).([]*domain.InvoiceRecord)
		}).Return(nil)

	csv := strings.Join([]string{
		"GSTIN,Invoice No,Invoice Date,Taxable Value,Tax Rate,Tax Amount",
		"27AAPFU0939F1ZV,INV001,05/04/2024,10000,18,1800",
		"27AAPFU0939F1ZV,INV002,06/04/2024,2500.50,12,300.06",
	}, "\n")

	result, err := svc.Ingest(context.Background(), &service.IngestInput{
		BusinessGSTIN: businessGSTIN,
		Source:        domain.SourcePurchase,
		FileName:      "purchases.csv",
		Body:          strings.NewReader(csv),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Accepted)
	assert.Empty(t, result.Excluded)
	require.Len(t, captured, 2)
	assert.Equal(t, businessGSTIN, captured[0].BusinessGSTIN)
	assert.Equal(t, domain.SourcePurchase, captured[0].Source)
	repo.AssertExpectations(t)
}

func TestRecordService_Ingest_BadRowsExcludedNotFatal(t *testing.T) {
	repo := new(mocks.MockRecordRepo)
	svc := service.NewRecordService(repo, 1.0)

	repo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.InvoiceRecord")).Return(nil)

	csv := strings.Join([]string{
		"GSTIN,Invoice No,Invoice Date,Taxable Value",
		"27AAPFU0939F1ZV,INV001,05/04/2024,10000",
		"27AAPFU0939F1ZV,INV002,not-a-date,5000",
	}, "\n")

	result, err := svc.Ingest(context.Background(), &service.IngestInput{
		BusinessGSTIN: businessGSTIN,
		Source:        domain.SourcePurchase,
		FileName:      "purchases.csv",
		Body:          strings.NewReader(csv),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "purchases.csv:3", result.Excluded[0].ProvenanceID)
}

func TestRecordService_Ingest_ChecksumInvalidGSTINKeptLowConfidence(t *testing.T) {
	repo := new(mocks.MockRecordRepo)
	svc := service.NewRecordService(repo, 1.0)

	repo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.InvoiceRecord")).Return(nil)

	csv := strings.Join([]string{
		"GSTIN,Invoice No,Invoice Date,Taxable Value",
		"27AAAPL1234C1Z5,INV001,05/04/2024,10000",
	}, "\n")

	result, err := svc.Ingest(context.Background(), &service.IngestInput{
		BusinessGSTIN: businessGSTIN,
		Source:        domain.SourceSales,
		FileName:      "sales.csv",
		Body:          strings.NewReader(csv),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.LowConfidence)
}

func TestRecordService_Ingest_RejectsInvalidBusinessGSTIN(t *testing.T) {
	repo := new(mocks.MockRecordRepo)
	svc := service.NewRecordService(repo, 1.0)

	_, err := svc.Ingest(context.Background(), &service.IngestInput{
		BusinessGSTIN: "not-a-gstin",
		Source:        domain.SourcePurchase,
		FileName:      "purchases.csv",
		Body:          strings.NewReader("GSTIN,Invoice No,Date,Amount\n"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidGSTIN)
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestRecordService_Get_ReturnsRecord(t *testing.T) {
	repo := new(mocks.MockRecordRepo)
	svc := service.NewRecordService(repo, 1.0)

	rec := &domain.InvoiceRecord{ID: uuid.New(), InvoiceNumber: "INV001"}
	repo.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

	got, err := svc.Get(context.Background(), rec.ID)

	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordService_Get_NotFound(t *testing.T) {
	repo := new(mocks.MockRecordRepo)
	svc := service.NewRecordService(repo, 1.0)

	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	got, err := svc.Get(context.Background(), id)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
