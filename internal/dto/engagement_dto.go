package dto

import (
	"time"

	"github.com/noah-isme/mentora-api/internal/models"
)

// EngagementCreateRequest is submitted by a student requesting a mentorship.
type EngagementCreateRequest struct {
	MentorID        uint   `json:"mentor_id" validate:"required,gt=0"`
	Skill           string `json:"skill" validate:"required,min=2,max=128"`
	WeeksTotal      int    `json:"weeks_total" validate:"required,gte=1,lte=52"`
	SessionsPerWeek int    `json:"sessions_per_week" validate:"required,gte=1,lte=5"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
}

// EngagementRejectRequest carries the mentor's rejection reason.
type EngagementRejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// EngagementResponse is returned to API clients when viewing engagements.
type EngagementResponse struct {
	ID              uint       `json:"id"`
	StudentID       uint       `json:"student_id"`
	MentorID        uint       `json:"mentor_id"`
	Skill           string     `json:"skill"`
	WeeksTotal      int        `json:"weeks_total"`
	SessionsPerWeek int        `json:"sessions_per_week"`
	StartInstant    time.Time  `json:"start_instant"`
	StartDate       string     `json:"start_date"`
	Status          string     `json:"status"`
	CompletedAt     *time.Time `json:"completed_at"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewEngagementResponse converts an Engagement model into a DTO.
func NewEngagementResponse(model models.Engagement) EngagementResponse {
	return EngagementResponse{
		ID:              model.ID,
		StudentID:       model.StudentID,
		MentorID:        model.MentorID,
		Skill:           model.Skill,
		WeeksTotal:      model.WeeksTotal,
		SessionsPerWeek: model.SessionsPerWeek,
		StartInstant:    model.StartInstant,
		StartDate:       model.StartDate,
		Status:          string(model.Status),
		CompletedAt:     model.CompletedAt,
		RejectionReason: model.RejectionReason,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// EngagementStatusResponse reports the evaluator's verdict.
type EngagementStatusResponse struct {
	EngagementID uint       `json:"engagement_id"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// ScheduleItemResponse describes one meeting of an engagement.
type ScheduleItemResponse struct {
	ID            uint       `json:"id"`
	EngagementID  uint       `json:"engagement_id"`
	WeekNumber    int        `json:"week_number"`
	SessionNumber int        `json:"session_number"`
	Title         string     `json:"title"`
	ScheduledDate string     `json:"scheduled_date"`
	ScheduledTime string     `json:"scheduled_time"`
	Status        string     `json:"status"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// NewScheduleItemResponse converts a ScheduleItem model into a DTO.
func NewScheduleItemResponse(model models.ScheduleItem) ScheduleItemResponse {
	return ScheduleItemResponse{
		ID:            model.ID,
		EngagementID:  model.EngagementID,
		WeekNumber:    model.WeekNumber,
		SessionNumber: model.SessionNumber,
		Title:         model.Title,
		ScheduledDate: model.ScheduledDate,
		ScheduledTime: model.ScheduledTime,
		Status:        string(model.Status),
		CompletedAt:   model.CompletedAt,
	}
}

// NewScheduleItemResponseSlice converts a slice of items.
func NewScheduleItemResponseSlice(items []models.ScheduleItem) []ScheduleItemResponse {
	responses := make([]ScheduleItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewScheduleItemResponse(item))
	}
	return responses
}

// DashboardMeeting is a meeting surfaced on a participant's dashboard.
type DashboardMeeting struct {
	Engagement EngagementResponse    `json:"engagement"`
	Item       *ScheduleItemResponse `json:"item,omitempty"`
	StartsAt   time.Time             `json:"starts_at"`
	InProgress bool                  `json:"in_progress"`
}

// PaymentResponse describes a payment record.
type PaymentResponse struct {
	ID           uint       `json:"id"`
	EngagementID uint       `json:"engagement_id"`
	Reference    string     `json:"reference"`
	AmountMinor  int64      `json:"amount_minor"`
	Status       string     `json:"status"`
	PaidAt       *time.Time `json:"paid_at"`
}

// PaymentCreateRequest initiates a payment for an approved engagement.
type PaymentCreateRequest struct {
	AmountMinor int64 `json:"amount_minor" validate:"gte=0"`
}

// NewPaymentResponse converts a Payment model into a DTO.
func NewPaymentResponse(model models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           model.ID,
		EngagementID: model.EngagementID,
		Reference:    model.Reference,
		AmountMinor:  model.AmountMinor,
		Status:       model.Status,
		PaidAt:       model.PaidAt,
	}
}

// CourseStatusRequest identifies a course triple in query strings.
type CourseStatusRequest struct {
	StudentID uint   `query:"student_id" validate:"required,gt=0"`
	MentorID  uint   `query:"mentor_id" validate:"required,gt=0"`
	Skill     string `query:"skill" validate:"required,min=2"`
}

// CourseStatusResponse reports the derived status of a course triple.
type CourseStatusResponse struct {
	StudentID      uint      `json:"student_id"`
	MentorID       uint      `json:"mentor_id"`
	Skill          string    `json:"skill"`
	Status         string    `json:"status"`
	RecalculatedAt time.Time `json:"recalculated_at"`
}

// NewCourseStatusResponse converts a CourseEnrollment model into a DTO.
func NewCourseStatusResponse(model models.CourseEnrollment) CourseStatusResponse {
	return CourseStatusResponse{
		StudentID:      model.StudentID,
		MentorID:       model.MentorID,
		Skill:          model.Skill,
		Status:         string(model.Status),
		RecalculatedAt: model.RecalculatedAt,
	}
}

// CourseRecalculationResult summarises a batch sweep.
type CourseRecalculationResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// CurriculumTopicRequest is one planned topic.
type CurriculumTopicRequest struct {
	Week    int    `json:"week" validate:"required,gte=1"`
	Session int    `json:"session" validate:"required,gte=1"`
	Title   string `json:"title" validate:"required,min=1,max=255"`
}

// CurriculumPlanRequest replaces the curriculum of a skill.
type CurriculumPlanRequest struct {
	Topics []CurriculumTopicRequest `json:"topics" validate:"dive"`
}

// CurriculumPlanResponse describes a stored curriculum plan.
type CurriculumPlanResponse struct {
	Skill  string                   `json:"skill"`
	Topics []models.CurriculumTopic `json:"topics"`
}
