package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fitstack/wodqueue/internal/api/dto"
	"github.com/fitstack/wodqueue/internal/jobqueue"
	"github.com/fitstack/wodqueue/internal/wod"
	"github.com/gin-gonic/gin"
)

// GenerateWOD handles POST /api/v1/wod/generate
// Generates a WOD synchronously for one user
func (h *WODHandler) GenerateWOD(c *gin.Context) {
	var req dto.GenerateWODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, wod.ErrNoExercisesAvailable) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "No exercises available",
			})
			return
		}

		h.logger.Error("Failed to generate WOD",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate WOD",
		})
		return
	}

	c.JSON(http.StatusOK, toWODResponse(result))
}

// GetHistory handles GET /api/v1/wod/history/:email
// Returns the user's recent exercise history
func (h *WODHandler) GetHistory(c *gin.Context) {
	email := c.Param("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "email is required",
		})
		return
	}

	since := time.Now().AddDate(0, 0, -30)

	items, err := h.storage.HistoryForUser(c.Request.Context(), email, since)
	if err != nil {
		h.logger.Error("Failed to get history",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get history",
		})
		return
	}

	history := make([]dto.HistoryItemDTO, 0, len(items))
	for _, item := range items {
		history = append(history, dto.HistoryItemDTO{
			ExerciseID:      item.ExerciseID,
			ExerciseName:    item.ExerciseName,
			PerformedAt:     item.PerformedAt.Format(time.RFC3339),
			SuggestedWeight: item.SuggestedWeight,
			SuggestedReps:   item.SuggestedReps,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"email":   email,
		"history": history,
	})
}

// EnqueueJobs handles POST /api/v1/wod/jobs
// Enqueues one WOD generation job per registered user (the scheduled
// fan-out trigger). Publishing is fire-and-forget; generation outcomes are
// only observable through the queue-side retry/DLQ lifecycle.
func (h *WODHandler) EnqueueJobs(c *gin.Context) {
	emails, err := h.storage.ListUserEmails(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list users",
		})
		return
	}

	enqueued := 0
	for _, email := range emails {
		if err := h.producer.Publish(c.Request.Context(), jobqueue.Job{Email: email}); err != nil {
			h.logger.Error("Failed to enqueue WOD job",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
			continue
		}
		enqueued++
	}

	h.logger.Info("WOD jobs enqueued",
		slog.Int("enqueued", enqueued),
		slog.Int("users", len(emails)),
	)

	c.JSON(http.StatusOK, dto.EnqueueJobsResponse{Enqueued: enqueued})
}

// toWODResponse converts a generation result to its wire representation
func toWODResponse(result *wod.Result) dto.GenerateWODResponse {
	exercises := make([]dto.WODExerciseDTO, 0, len(result.Exercises))
	for _, sel := range result.Exercises {
		groups := make([]dto.MuscleGroupDTO, 0, len(sel.MuscleGroups))
		for _, role := range sel.MuscleGroups {
			groups = append(groups, dto.MuscleGroupDTO{
				Name:      role.Group.Name,
				BodyPart:  role.Group.BodyPart,
				IsPrimary: role.Primary,
			})
		}

		exercises = append(exercises, dto.WODExerciseDTO{
			ID:              sel.Exercise.ID,
			Name:            sel.Exercise.Name,
			Equipment:       sel.Exercise.Equipment,
			SuggestedWeight: sel.SuggestedWeight,
			SuggestedReps:   sel.SuggestedReps,
			MuscleGroups:    groups,
		})
	}

	return dto.GenerateWODResponse{
		Email:     result.UserEmail,
		Exercises: exercises,
	}
}
