// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/rumoo/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// NearestPlace provides a mock function with given fields: ctx, lat, lng, placeType
func (_m *MockClient) NearestPlace(ctx context.Context, lat float64, lng float64, placeType string) (*google.Place, error) {
	ret := _m.Called(ctx, lat, lng, placeType)

	if len(ret) == 0 {
		panic("no return value specified for NearestPlace")
	}

	var r0 *google.Place
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64, string) (*google.Place, error)); ok {
		return rf(ctx, lat, lng, placeType)
	}
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64, string) *google.Place); ok {
		r0 = rf(ctx, lat, lng, placeType)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*google.Place)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, float64, float64, string) error); ok {
		r1 = rf(ctx, lat, lng, placeType)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// WalkingSeconds provides a mock function with given fields: ctx, lat, lng, placeID
func (_m *MockClient) WalkingSeconds(ctx context.Context, lat float64, lng float64, placeID string) (int, error) {
	ret := _m.Called(ctx, lat, lng, placeID)

	if len(ret) == 0 {
		panic("no return value specified for WalkingSeconds")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64, string) (int, error)); ok {
		return rf(ctx, lat, lng, placeID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64, string) int); ok {
		r0 = rf(ctx, lat, lng, placeID)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context, float64, float64, string) error); ok {
		r1 = rf(ctx, lat, lng, placeID)
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
