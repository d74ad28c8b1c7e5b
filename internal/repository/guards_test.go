package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/models"
)

func TestApplyGuardRejectsRepeatApplicants(t *testing.T) {
	user := bson.NewObjectID()
	now := time.Now().UTC()
	filter, update := applyGuard(models.JobApplicant{User: user, Status: models.ApplicationPending, AppliedAt: now})

	assert.Equal(t, true, value(t, filter, "isActive"))
	assert.Equal(t, bson.D{{Key: "$ne", Value: user}}, value(t, filter, "applicants.user"))
	assert.Contains(t, keys(filter), "$or")

	push := value(t, update, "$push").(bson.D)
	applicant := value(t, push, "applicants").(models.JobApplicant)
	assert.Equal(t, user, applicant.User)
}

func TestRegisterGuardChecksCapacityAndDeadline(t *testing.T) {
	user := bson.NewObjectID()
	now := time.Now().UTC()
	filter, update := registerGuard(models.WorkshopAttendee{User: user, RegisteredAt: now})

	assert.Equal(t, []string{"isActive", "attendees.user", "$expr", "$or"}, keys(filter))
	assert.Equal(t, bson.D{{Key: "$lt", Value: bson.A{
		bson.D{{Key: "$size", Value: "$attendees"}},
		"$capacity",
	}}}, value(t, filter, "$expr"))

	deadline := value(t, filter, "$or").(bson.A)
	require.Len(t, deadline, 2)
	assert.Equal(t, bson.D{{Key: "registrationDeadline", Value: bson.D{{Key: "$gte", Value: now}}}}, deadline[1])
	assert.Equal(t, []string{"$push"}, keys(update))
}

func TestTransitionUpdateStampsOnce(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	filter, update := transitionUpdate(models.MentorshipTransition{
		From:            []models.MentorshipStatus{models.MentorshipPending},
		To:              models.MentorshipAccepted,
		ResponseMessage: "happy to help",
		At:              at,
	})
	assert.Equal(t, bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: []models.MentorshipStatus{models.MentorshipPending}}}}}, filter)
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: models.MentorshipAccepted},
		{Key: "responseMessage", Value: "happy to help"},
		{Key: "acceptedAt", Value: at},
	}}}, update)

	_, update = transitionUpdate(models.MentorshipTransition{
		From: []models.MentorshipStatus{models.MentorshipAccepted},
		To:   models.MentorshipCompleted,
		At:   at,
	})
	assert.Equal(t, []string{"$set", "$unset"}, keys(update))
	assert.Equal(t, bson.D{{Key: "activeKey", Value: ""}}, value(t, update, "$unset"))
	assert.Equal(t, at, value(t, value(t, update, "$set").(bson.D), "completedAt"))
}

func TestMentorshipQueryParticipant(t *testing.T) {
	user := bson.NewObjectID()
	query := mentorshipQuery(models.MentorshipFilter{
		Participant: &user,
		Statuses:    []models.MentorshipStatus{models.MentorshipAccepted},
	})
	assert.Equal(t, []string{"$or", "status"}, keys(query))
}

func TestProgramGuards(t *testing.T) {
	mentee := bson.NewObjectID()
	reqID := bson.NewObjectID()
	now := time.Now().UTC()

	filter, _ := addRequestGuard(models.ProgramRequest{ID: reqID, Mentee: mentee, Status: models.ProgramRequestPending, RequestedAt: now})
	assert.Equal(t, []string{"isActive", "mentees", "requests"}, keys(filter))
	assert.Equal(t, bson.D{{Key: "$ne", Value: mentee}}, value(t, filter, "mentees"))

	filter, update := acceptRequestGuard(reqID, mentee, now)
	assert.Equal(t, pendingRequest(reqID), value(t, filter, "requests"))
	and := value(t, value(t, filter, "$expr").(bson.D), "$and").(bson.A)
	require.Len(t, and, 2)
	assert.Equal(t, bson.D{{Key: "$lt", Value: bson.A{bson.D{{Key: "$size", Value: "$mentees"}}, "$maxMentees"}}}, and[0])

	set := value(t, update, "$set").(bson.D)
	assert.Equal(t, models.ProgramRequestAccepted, value(t, set, "requests.$.status"))
	assert.Equal(t, bson.D{{Key: "mentees", Value: mentee}}, value(t, update, "$push"))
}

func TestAnnouncementQuery(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	student := announcementQuery(models.AnnouncementFilter{Audience: models.RoleStudent, ActiveAt: now})
	assert.Equal(t, []string{"status", "targetAudience", "$or"}, keys(student))
	assert.Equal(t, models.AnnouncementPublished, value(t, student, "status"))
	assert.Equal(t, bson.D{{Key: "$in", Value: bson.A{models.AudienceAll, "student"}}}, value(t, student, "targetAudience"))
	assert.Equal(t, notExpired("expiresAt", now).Value, value(t, student, "$or"))

	assert.Empty(t, announcementQuery(models.AnnouncementFilter{All: true, Audience: models.RoleStudent}))
	assert.Equal(t, bson.D{{Key: "status", Value: models.AnnouncementDraft}}, announcementQuery(models.AnnouncementFilter{All: true, Status: models.AnnouncementDraft}))
}

func TestBlogQueryVisibility(t *testing.T) {
	viewer := bson.NewObjectID()

	assert.Equal(t, bson.D{{Key: "status", Value: models.BlogPublished}}, blogQuery(models.BlogFilter{}))

	own := blogQuery(models.BlogFilter{Viewer: &viewer})
	or := value(t, own, "$or").(bson.A)
	assert.Equal(t, bson.D{{Key: "author", Value: viewer}}, or[1])

	drafts := blogQuery(models.BlogFilter{Viewer: &viewer, Status: models.BlogDraft})
	assert.Equal(t, bson.D{{Key: "status", Value: models.BlogDraft}, {Key: "author", Value: viewer}}, drafts)
}

func TestJobQueryDefaultsToActive(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "isActive", Value: true}}, jobQuery(models.JobFilter{}))
	all := jobQuery(models.JobFilter{IncludeInactive: true, Type: models.JobInternship})
	assert.Equal(t, bson.D{{Key: "type", Value: models.JobInternship}}, all)
}

func TestChatUpsertAndMessageWindow(t *testing.T) {
	a, b := bson.NewObjectID(), bson.NewObjectID()
	mentorship := bson.NewObjectID()
	now := time.Now().UTC()

	update := chatUpsert(a, b, &mentorship, now)
	insert := value(t, update, "$setOnInsert").(bson.D)
	assert.Equal(t, bson.A{a, b}, value(t, insert, "participants"))
	assert.Equal(t, int64(1), value(t, insert, "version"))
	assert.Equal(t, mentorship, value(t, insert, "mentorship"))
	assert.NotContains(t, keys(insert), "pairKey", "the upsert filter supplies pairKey")

	pipeline := messagesPipeline(a, models.PageRequest{Page: 3, PageSize: 10})
	require.Len(t, pipeline, 2)
	project := value(t, pipeline[1], "$project").(bson.D)
	slice := value(t, value(t, project, "messages").(bson.D), "$slice").(bson.A)
	assert.Equal(t, int64(20), slice[1])
	assert.Equal(t, int64(10), slice[2])
}

func TestFeedbackFacetsStats(t *testing.T) {
	facets := feedbackFacets{
		ByPriority: []countBucket{{Key: "high", Count: 2}},
		ByStatus:   []countBucket{{Key: "open", Count: 3}},
		ByRating:   []countBucket{{Key: int32(1), Count: 2}, {Key: int64(5), Count: 1}},
	}
	facets.Totals = append(facets.Totals, struct {
		Total   int64   `bson:"total"`
		Average float64 `bson:"average"`
	}{Total: 3, Average: 2.33})

	stats := facets.stats()
	assert.EqualValues(t, 3, stats.Total)
	assert.InDelta(t, 2.33, stats.AverageRating, 0.001)
	assert.EqualValues(t, 2, stats.ByPriority[models.PriorityHigh])
	assert.EqualValues(t, 3, stats.ByStatus[models.FeedbackOpen])
	assert.EqualValues(t, 2, stats.ByRating[1])
	assert.EqualValues(t, 1, stats.ByRating[5])

	empty := feedbackFacets{}.stats()
	assert.NotNil(t, empty.ByPriority)
	assert.Zero(t, empty.Total)
}
