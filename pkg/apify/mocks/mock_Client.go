// Package mocks provides test doubles for the apify client.
package mocks

import (
	"context"

	apify "github.com/sells-group/rumoo/pkg/apify"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// ScrapeListing provides a mock function with given fields: ctx, listingURL
func (_m *MockClient) ScrapeListing(ctx context.Context, listingURL string) (*apify.ListingItem, error) {
	ret := _m.Called(ctx, listingURL)

	if len(ret) == 0 {
		panic("no return value specified for ScrapeListing")
	}

	var r0 *apify.ListingItem
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*apify.ListingItem, error)); ok {
		return rf(ctx, listingURL)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *apify.ListingItem); ok {
		r0 = rf(ctx, listingURL)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*apify.ListingItem)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, listingURL)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
