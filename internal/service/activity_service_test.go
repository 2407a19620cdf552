package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/repository"
)

func TestActivityServiceRecordMasksSensitiveMetadata(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testValidator(), testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Instructor",
		Action:     "Grade.Overridden",
		EntityType: "Grade",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"student_email": "student@example.com",
			"reset_token":   "abc",
			"question_id":   3,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["student_email"])
	require.Equal(t, "***", entry.Metadata["reset_token"])
	require.Equal(t, 3, entry.Metadata["question_id"])
	require.Equal(t, "instructor", entry.ActorRole)
	require.Equal(t, "grade.overridden", entry.Action)

	_, err = svc.Record(context.Background(), ActivityEntry{EntityType: "grade"})
	require.Error(t, err)
}

func TestActivityServiceListFilters(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testValidator(), testLogger())
	ctx := context.Background()

	for _, entry := range []ActivityEntry{
		{Action: activitySubmissionUploaded, EntityType: "submission", EntityID: ptrUint(1)},
		{Action: activitySubmissionGraded, EntityType: "submission", EntityID: ptrUint(1)},
		{Action: activitySubmissionGraded, EntityType: "submission", EntityID: ptrUint(2)},
		{ActorID: 9, ActorRole: "instructor", Action: activityCourseDeleted, EntityType: "course", EntityID: ptrUint(1)},
	} {
		_, err := svc.Record(ctx, entry)
		require.NoError(t, err)
	}

	graded, err := svc.List(ctx, dto.ActivityListRequest{Action: activitySubmissionGraded})
	require.NoError(t, err)
	require.Len(t, graded, 2)
	for _, entry := range graded {
		require.Equal(t, "system", entry.ActorRole)
	}

	one, err := svc.List(ctx, dto.ActivityListRequest{EntityType: "submission", EntityID: 1})
	require.NoError(t, err)
	require.Len(t, one, 2)

	limited, err := svc.List(ctx, dto.ActivityListRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	_, err = svc.List(ctx, dto.ActivityListRequest{Limit: 500})
	require.Error(t, err)
}
