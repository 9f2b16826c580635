package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports/mocks"
)

func sampleAssignments() []domain.Assignment {
	return []domain.Assignment{
		{ID: 3, StudentName: "Carla Dias", StudentEmail: "carla@school.test", BadgeName: "Python Basics", DownloadCount: 2},
		{ID: 1, StudentName: "ana souza", StudentEmail: "ana@school.test", BadgeName: "Go Gopher", DownloadCount: 5},
		{ID: 2, StudentName: "Bruno Lima", StudentEmail: "bruno@school.test", BadgeName: "Python Basics", DownloadCount: 0},
	}
}

func TestAssignmentService_Execute_DefaultSortByID(t *testing.T) {
	api := mocks.NewMockBadgeAPI()
	api.Assignments = sampleAssignments()
	svc := NewAssignmentService(api)

	resp, err := svc.Execute(context.Background(), ListAssignmentsRequest{})
	require.NoError(t, err)

	require.Equal(t, 3, resp.Total)
	assert.Equal(t, []int64{1, 2, 3}, ids(resp.Assignments))
}

func TestAssignmentService_Execute_Sorting(t *testing.T) {
	tests := []struct {
		name    string
		sortBy  string
		reverse bool
		want    []int64
	}{
		{"student case-insensitive", "student", false, []int64{1, 2, 3}},
		{"badge", "badge", false, []int64{1, 3, 2}},
		{"downloads reversed", "downloads", true, []int64{1, 3, 2}},
		{"id reversed", "id", true, []int64{3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := mocks.NewMockBadgeAPI()
			api.Assignments = sampleAssignments()
			svc := NewAssignmentService(api)

			resp, err := svc.Execute(context.Background(), ListAssignmentsRequest{SortBy: tt.sortBy, Reverse: tt.reverse})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(resp.Assignments))
		})
	}
}

func TestAssignmentService_Execute_ReverseKeepsTiesInOrder(t *testing.T) {
	api := mocks.NewMockBadgeAPI()
	api.Assignments = []domain.Assignment{
		{ID: 1, BadgeName: "Go", DownloadCount: 4},
		{ID: 2, BadgeName: "Go", DownloadCount: 4},
		{ID: 4, BadgeName: "Rust", DownloadCount: 9},
		{ID: 3, BadgeName: "Go", DownloadCount: 4},
	}
	svc := NewAssignmentService(api)

	resp, err := svc.Execute(context.Background(), ListAssignmentsRequest{SortBy: "downloads", Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1, 2, 3}, ids(resp.Assignments))

	resp, err = svc.Execute(context.Background(), ListAssignmentsRequest{SortBy: "badge", Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1, 2, 3}, ids(resp.Assignments))
}

func TestAssignmentService_Execute_Query(t *testing.T) {
	api := mocks.NewMockBadgeAPI()
	api.Assignments = sampleAssignments()
	svc := NewAssignmentService(api)

	resp, err := svc.Execute(context.Background(), ListAssignmentsRequest{Query: "python"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(resp.Assignments))

	resp, err = svc.Execute(context.Background(), ListAssignmentsRequest{Query: "ANA@"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(resp.Assignments))

	resp, err = svc.Execute(context.Background(), ListAssignmentsRequest{Query: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
}

func TestAssignmentService_Execute_APIError(t *testing.T) {
	api := mocks.NewMockBadgeAPI()
	api.ListErr = errors.New("boom")
	svc := NewAssignmentService(api)

	_, err := svc.Execute(context.Background(), ListAssignmentsRequest{})
	assert.ErrorContains(t, err, "failed to list assignments")
}

func TestAssignmentService_Resend(t *testing.T) {
	api := mocks.NewMockBadgeAPI()
	api.Assignments = sampleAssignments()
	svc := NewAssignmentService(api)

	require.NoError(t, svc.Resend(context.Background(), 2))
	assert.Equal(t, []int64{2}, api.Resent())

	assert.Error(t, svc.Resend(context.Background(), 0))
	assert.Error(t, svc.Resend(context.Background(), 99))
}

func ids(assignments []domain.Assignment) []int64 {
	out := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, a.ID)
	}
	return out
}
