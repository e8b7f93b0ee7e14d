package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
)

func TestConsultService_Submit(t *testing.T) {
	env := newTestEnv(t)
	svc := NewConsultService(env.repo, env.publisher, env.logger, env.validator)
	ctx := context.Background()

	inquiry, err := svc.Submit(ctx, &ConsultRequest{
		Name:     "Peter Okello",
		Company:  "Kampala Cement Ltd",
		Email:    "Peter@KampalaCement.co.ug",
		Standard: "ISO 14001:2015",
		Message:  "We need gap analysis support ahead of certification.",
	})
	require.NoError(t, err)
	assert.Equal(t, "peter@kampalacement.co.ug", inquiry.Email)

	var stored []models.ConsultingInquiry
	require.NoError(t, env.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].Phone)

	published := env.publisher.EventsOfType(events.TopicInquiryReceived)
	require.Len(t, published, 1)
	var payload events.InquiryReceived
	require.NoError(t, published[0].Decode(&payload))
	assert.Equal(t, inquiry.ID.String(), payload.InquiryID)
	assert.Equal(t, "Kampala Cement Ltd", payload.Company)
}

func TestConsultService_SubmitInvalid(t *testing.T) {
	env := newTestEnv(t)
	svc := NewConsultService(env.repo, env.publisher, env.logger, env.validator)

	_, err := svc.Submit(context.Background(), &ConsultRequest{
		Name:  "Peter",
		Email: "peter@example.com",
	})

	var validationErrors ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
	assert.Empty(t, env.publisher.GetPublishedEvents())

	var count int64
	require.NoError(t, env.db.Model(&models.ConsultingInquiry{}).Count(&count).Error)
	assert.Zero(t, count)
}
