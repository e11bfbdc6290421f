// Package gatewaytest provides a testify mock of gateway.Client.
package gatewaytest

import (
	"context"

	"turapay/internal/gateway"
	"turapay/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockClient) CollectMobileMoney(ctx context.Context, req gateway.MobileCollectionRequest) (models.JSON, error) {
	args := m.Called(ctx, req)
	return jsonArg(args, 0), args.Error(1)
}

func (m *MockClient) CollectCard(ctx context.Context, req gateway.CardCollectionRequest) (models.JSON, error) {
	args := m.Called(ctx, req)
	return jsonArg(args, 0), args.Error(1)
}

func (m *MockClient) CollectionStatus(ctx context.Context, referenceID string) (models.JSON, error) {
	args := m.Called(ctx, referenceID)
	return jsonArg(args, 0), args.Error(1)
}

func (m *MockClient) DisburseMobileMoney(ctx context.Context, req gateway.DisbursementRequest) (models.JSON, error) {
	args := m.Called(ctx, req)
	return jsonArg(args, 0), args.Error(1)
}

func (m *MockClient) DisbursementStatus(ctx context.Context, referenceID string) (models.JSON, error) {
	args := m.Called(ctx, referenceID)
	return jsonArg(args, 0), args.Error(1)
}

func jsonArg(args mock.Arguments, i int) models.JSON {
	if v := args.Get(i); v != nil {
		return v.(models.JSON)
	}
	return nil
}
