package objstore

import (
	"context"
	"fmt"
	"io"
)

// mockClient is a mock implementation of Client for testing
type mockClient struct {
	putObjectFunc  func(ctx context.Context, req *PutObjectRequest) error
	getObjectFunc  func(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error)
	headObjectFunc func(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error)
}

func (m *mockClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, req)
	}
	return fmt.Errorf("PutObject not implemented")
}

func (m *mockClient) GetObject(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error) {
	if m.getObjectFunc != nil {
		return m.getObjectFunc(ctx, req)
	}
	return nil, fmt.Errorf("GetObject not implemented")
}

func (m *mockClient) HeadObject(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error) {
	if m.headObjectFunc != nil {
		return m.headObjectFunc(ctx, req)
	}
	return nil, fmt.Errorf("HeadObject not implemented")
}
