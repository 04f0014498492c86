package handlers

import (
	"math"
	"net/http"

	"github.com/AnshRaj112/bolt-backend/internal/apierr"
	"github.com/AnshRaj112/bolt-backend/internal/catalog"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
)

type CompleteTaskRequest struct {
	TaskID int `json:"taskId"`
}

// taskView is a catalog task with the caller's progress toward it.
type taskView struct {
	catalog.Task
	Progress int64 `json:"progress"`
}

// ListTasks returns the daily and weekly boards with progress
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	daily := []taskView{}
	weekly := []taskView{}
	for _, t := range h.catalog.Tasks() {
		v := taskView{Task: t, Progress: catalog.TaskProgress(t, acct)}
		if t.IsDaily() {
			daily = append(daily, v)
		} else {
			weekly = append(weekly, v)
		}
	}
	writeJSON(w, http.StatusOK, envelope{
		"dailyTasks":  daily,
		"weeklyTasks": weekly,
		"userStats": envelope{
			"dailyTasksCompleted":  acct.DailyTasksCompleted,
			"weeklyTasksCompleted": acct.WeeklyTasksCompleted,
			"totalTasksCompleted":  acct.TasksCompleted,
		},
	})
}

// CompleteTask pays a task reward
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req CompleteTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.TaskID == 0 {
		h.writeError(w, r, apierr.BadRequest("Task ID is required", nil))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, out, err := h.progression.CompleteTask(ctx, acct.ID, req.TaskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "Task completed successfully",
		"rewards": rewardsBody(out.Task.Coins, out.Task.XP, out.LevelUp, updated.Coins, updated.XP, updated.Level),
		"stats":   out.Stats,
	})
}

func (h *Handler) TaskCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"categories": h.catalog.TaskCategories()})
}

// TaskStats returns completion counters
func (h *Handler) TaskStats(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var rate int64
	if split := acct.DailyTasksCompleted + acct.WeeklyTasksCompleted; acct.TasksCompleted > 0 && split > 0 {
		rate = int64(math.Round(float64(acct.TasksCompleted) / float64(split) * 100))
	}
	writeJSON(w, http.StatusOK, envelope{"stats": envelope{
		"totalTasksCompleted":  acct.TasksCompleted,
		"dailyTasksCompleted":  acct.DailyTasksCompleted,
		"weeklyTasksCompleted": acct.WeeklyTasksCompleted,
		"completionRate":       rate,
	}})
}
