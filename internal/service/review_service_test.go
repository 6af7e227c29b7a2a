package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/events"
	"github.com/noah-isme/medlink-api/internal/models"
)

type settledOrder struct {
	org        Actor
	specialist Actor
	patient    Actor
	clinic     dto.ClinicResponse
	order      dto.OrderResponse
}

// settle runs an order through the bid workflow until it is completed.
func (m *marketplace) settle(t *testing.T, prefix string) settledOrder {
	t.Helper()
	ctx := context.Background()

	s := settledOrder{
		org:        m.register(t, models.RoleOrganization, prefix+"_org"),
		specialist: m.register(t, models.RoleSpecialist, prefix+"_spec"),
		patient:    m.register(t, models.RolePatient, prefix+"_pat"),
	}
	clinic, err := m.clinics.Create(ctx, s.org, clinicPayload("Settled Clinic", "Cologne"))
	require.NoError(t, err)
	s.clinic = clinic

	order := m.createOrder(t, s.org, func(req *dto.OrderCreateRequest) {
		req.PatientID = &s.patient.ID
		req.ClinicID = &clinic.ID
	})
	bid := m.respond(t, s.specialist, order.ID)
	accepted, err := m.responses.Accept(ctx, s.org, bid.ID)
	require.NoError(t, err)
	s.order = accepted.Order
	return s
}

func TestReviewCreateAndDuplicate(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	s := m.settle(t, "dup")

	review, err := m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.specialist.ID,
		TargetType: "specialist",
		Text:       "Very attentive and explained everything clearly.",
		Rate:       9,
	})
	require.NoError(t, err)
	require.Equal(t, 9, review.Rate)
	require.Nil(t, review.Response)
	require.Contains(t, m.events.Types(), events.TypeReviewCreated)

	_, err = m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.specialist.ID,
		TargetType: "specialist",
		Text:       "Trying to rate the same specialist twice.",
		Rate:       3,
	})
	require.ErrorIs(t, err, ErrReviewDuplicate)
	require.ErrorIs(t, err, ErrDuplicate)

	byTaken, err := m.reviews.Create(ctx, s.specialist, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.org.ID,
		TargetType: "organization",
		Text:       "Smooth coordination from the organization.",
		Rate:       8,
	})
	require.NoError(t, err)
	require.Equal(t, s.specialist.ID, byTaken.SenderID)

	byCreator, err := m.reviews.Create(ctx, s.org, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.specialist.ID,
		TargetType: "specialist",
		Text:       "Delivered exactly what the order asked for.",
		Rate:       10,
	})
	require.NoError(t, err)
	require.Equal(t, "specialist", byCreator.TargetType)
}

func TestReviewCreateRejections(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	s := m.settle(t, "rej")

	outsider := m.register(t, models.RolePatient, "rej_outsider")
	text := "Long enough text for a review body."

	active := m.createOrder(t, s.org, func(req *dto.OrderCreateRequest) { req.PatientID = &s.patient.ID })
	_, err := m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID: active.ID, TargetID: s.org.ID, TargetType: "organization", Text: text, Rate: 5,
	})
	require.ErrorIs(t, err, ErrReviewOrderActive)

	_, err = m.reviews.Create(ctx, outsider, dto.ReviewCreateRequest{
		OrderID: s.order.ID, TargetID: s.specialist.ID, TargetType: "specialist", Text: text, Rate: 5,
	})
	require.ErrorIs(t, err, ErrReviewNotParticipant)

	_, err = m.reviews.Create(ctx, s.org, dto.ReviewCreateRequest{
		OrderID: s.order.ID, TargetID: s.clinic.ID, TargetType: "clinic", Text: text, Rate: 5,
	})
	require.ErrorIs(t, err, ErrReviewTargetNotAllow)

	_, err = m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID: s.order.ID, TargetID: s.patient.ID, TargetType: "patient", Text: text, Rate: 5,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID: s.order.ID, TargetID: s.org.ID, TargetType: "specialist", Text: text, Rate: 5,
	})
	require.ErrorIs(t, err, ErrReviewTargetNotFound)

	_, err = m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID: s.order.ID, TargetID: s.specialist.ID, TargetType: "specialist", Text: text, Rate: 11,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID: 4040, TargetID: s.specialist.ID, TargetType: "specialist", Text: text, Rate: 5,
	})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReviewClinicReplyByOwningOrganization(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	s := m.settle(t, "reply")
	rival := m.register(t, models.RoleOrganization, "reply_rival")

	review, err := m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.clinic.ID,
		TargetType: "clinic",
		Text:       "Clean rooms and short waiting times.",
		Rate:       7,
	})
	require.NoError(t, err)

	_, err = m.reviews.Respond(ctx, rival, review.ID, dto.ReviewReplyRequest{Text: "Not my clinic though"})
	require.ErrorIs(t, err, ErrReviewForbidden)

	_, err = m.reviews.Respond(ctx, s.specialist, review.ID, dto.ReviewReplyRequest{Text: "Thanks for visiting"})
	require.ErrorIs(t, err, ErrReviewForbidden)

	answered, err := m.reviews.Respond(ctx, s.org, review.ID, dto.ReviewReplyRequest{Text: "Thank you for the kind words"})
	require.NoError(t, err)
	require.NotNil(t, answered.Response)
	require.Equal(t, "Thank you for the kind words", *answered.Response)
	require.NotNil(t, answered.RespondedAt)

	stored, err := m.reviews.Get(ctx, review.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Response)
}

func TestReviewUpdateDeleteAndListings(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	s := m.settle(t, "edit")

	first, err := m.reviews.Create(ctx, s.patient, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.specialist.ID,
		TargetType: "specialist",
		Text:       "Good but a little late to the visit.",
		Rate:       7,
	})
	require.NoError(t, err)
	_, err = m.reviews.Create(ctx, s.org, dto.ReviewCreateRequest{
		OrderID:    s.order.ID,
		TargetID:   s.specialist.ID,
		TargetType: "specialist",
		Text:       "Great cooperation on this order overall.",
		Rate:       10,
	})
	require.NoError(t, err)

	rating, err := m.reviews.Rating(ctx, "specialist", s.specialist.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), rating.Count)
	require.InDelta(t, 8.5, rating.Average, 0.001)

	newRate := 8
	_, err = m.reviews.Update(ctx, s.org, first.ID, dto.ReviewUpdateRequest{Rate: &newRate})
	require.ErrorIs(t, err, ErrReviewForbidden)

	updated, err := m.reviews.Update(ctx, s.patient, first.ID, dto.ReviewUpdateRequest{Rate: &newRate})
	require.NoError(t, err)
	require.Equal(t, 8, updated.Rate)

	rating, err = m.reviews.Rating(ctx, "Specialist", s.specialist.ID)
	require.NoError(t, err)
	require.InDelta(t, 9.0, rating.Average, 0.001)

	filtered, err := m.reviews.ForTarget(ctx, "specialist", s.specialist.ID, dto.ReviewTargetRequest{MinRating: 9})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)

	_, err = m.reviews.ForTarget(ctx, "specialist", s.specialist.ID, dto.ReviewTargetRequest{MinRating: 9, MaxRating: 3})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.reviews.ForTarget(ctx, "hospital", s.specialist.ID, dto.ReviewTargetRequest{})
	require.ErrorIs(t, err, ErrValidation)

	mine, err := m.reviews.ByUser(ctx, s.patient, s.patient.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)

	_, err = m.reviews.ByUser(ctx, s.specialist, s.patient.ID, 1, 10)
	require.ErrorIs(t, err, ErrReviewForbidden)

	require.ErrorIs(t, m.reviews.Delete(ctx, s.org, first.ID), ErrReviewForbidden)
	require.NoError(t, m.reviews.Delete(ctx, s.patient, first.ID))

	_, err = m.reviews.Get(ctx, first.ID)
	require.ErrorIs(t, err, ErrReviewNotFound)

	rating, err = m.reviews.Rating(ctx, "specialist", s.specialist.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), rating.Count)
}
