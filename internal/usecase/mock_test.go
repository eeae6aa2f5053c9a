package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/prlab/prcrawl/internal/gateway"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It lets the orchestration tests run without real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) SearchRepositories(ctx context.Context, first int, cursor string) (*gateway.RepositoryPage, error) {
	args := m.Called(ctx, first, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RepositoryPage), args.Error(1)
}

func (m *mockFetcher) RepositoryPRCount(ctx context.Context, owner, name string) (int, error) {
	args := m.Called(ctx, owner, name)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) PullRequests(ctx context.Context, owner, name string, first int, cursor string) (*gateway.PullRequestPage, error) {
	args := m.Called(ctx, owner, name, first, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PullRequestPage), args.Error(1)
}

func (m *mockFetcher) PullRequestDetails(ctx context.Context, owner, name string, number int) (*gateway.PullRequestDetails, error) {
	args := m.Called(ctx, owner, name, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PullRequestDetails), args.Error(1)
}

func (m *mockFetcher) PullRequestReviewCount(ctx context.Context, owner, name string, number int) (int, error) {
	args := m.Called(ctx, owner, name, number)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) PullRequestCommentCount(ctx context.Context, owner, name string, number int) (int, error) {
	args := m.Called(ctx, owner, name, number)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) PullRequestParticipantCount(ctx context.Context, owner, name string, number int) (int, error) {
	args := m.Called(ctx, owner, name, number)
	return args.Int(0), args.Error(1)
}
