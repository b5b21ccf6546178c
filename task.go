// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// clock abstracts time for poll loops so tests can run without sleeping
type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OperationStatus is the human-readable status of a task or subtask
type OperationStatus string

const (
	OperationStatusSuccess           OperationStatus = "Success"
	OperationStatusFailure           OperationStatus = "Failure"
	OperationStatusInProgress        OperationStatus = "In progress"
	OperationStatusScheduled         OperationStatus = "Scheduled"
	OperationStatusValidationSuccess OperationStatus = "Validation success"
	OperationStatusValidationFailure OperationStatus = "Validation failure"
)

// OperationStatusID is the machine-readable counterpart of OperationStatus.
// The two fields are reported independently and do not always agree, so
// completion is classified on either one.
type OperationStatusID string

const (
	OperationStatusIDSuccess           OperationStatusID = "success"
	OperationStatusIDFailure           OperationStatusID = "failure"
	OperationStatusIDInProgress        OperationStatusID = "in_progress"
	OperationStatusIDScheduled         OperationStatusID = "scheduled"
	OperationStatusIDValidationSuccess OperationStatusID = "validation_success"
	OperationStatusIDValidationFailure OperationStatusID = "validation_failure"
)

// ActionConfig is reported by the Manager either as a JSON string or as
// an embedded object depending on the action type. The raw representation
// and its form are kept so re-serializing yields the original shape.
type ActionConfig struct {
	raw    string
	object bool
}

func (a *ActionConfig) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.raw = s
		a.object = false
		return nil
	}
	a.raw = string(data)
	a.object = true
	return nil
}

func (a ActionConfig) MarshalJSON() ([]byte, error) {
	if a.object {
		return json.RawMessage(a.raw), nil
	}
	return json.Marshal(a.raw)
}

// String returns the action config as reported, object forms as raw JSON
func (a ActionConfig) String() string {
	return a.raw
}

// SubTaskData is the per-device progress entry of a task
type SubTaskData struct {
	Status          OperationStatus   `json:"status"`
	StatusID        OperationStatusID `json:"statusId"`
	Action          string            `json:"action"`
	Activity        []string          `json:"activity"`
	CurrentActivity string            `json:"currentActivity"`
	ActionConfig    ActionConfig      `json:"actionConfig"`
	Order           int               `json:"order"`
	UUID            string            `json:"uuid"`
	HostName        string            `json:"host-name"`
	SiteID          string            `json:"site-id"`
}

// TaskValidation is the validation entry of a task status response
type TaskValidation struct {
	Status   OperationStatus   `json:"status"`
	StatusID OperationStatusID `json:"statusId"`
	Activity []string          `json:"activity"`
	Action   string            `json:"action"`
}

// TaskData is a full task status response
type TaskData struct {
	Validation *TaskValidation `json:"validation"`
	Data       []SubTaskData   `json:"data"`
	Summary    json.RawMessage `json:"summary"`
}

// TaskResult is the outcome of waiting for a task. Result is true only
// when every subtask finished in a success state.
type TaskResult struct {
	Result   bool
	SubTasks []SubTaskData
}

// Task tracks an asynchronous Manager action by its task id
type Task struct {
	client *Client
	ID     string
}

// Task returns a handle for an already-started action
func (c *Client) Task(id string) *Task {
	return &Task{client: c, ID: id}
}

// taskFromResponse extracts the task id from an action-trigger response
func (c *Client) taskFromResponse(res Res, action string) (*Task, error) {
	id := res.Get("id").String()
	if id == "" {
		return nil, &TaskNotRegisteredError{Action: action}
	}
	return c.Task(id), nil
}

// Status fetches the current task status
func (t *Task) Status(ctx context.Context) (TaskData, error) {
	res, err := t.client.Get(ctx, "/dataservice/device/action/status/"+t.ID)
	if err != nil {
		return TaskData{}, err
	}
	var data TaskData
	if err := json.Unmarshal([]byte(res.RawBody), &data); err != nil {
		return TaskData{}, fmt.Errorf("cannot decode status of task %s: %w", t.ID, err)
	}
	return data, nil
}

// waitConfig holds the tunables of a task wait loop
type waitConfig struct {
	timeout         time.Duration
	interval        time.Duration
	successStatuses map[OperationStatus]struct{}
	successIDs      map[OperationStatusID]struct{}
	failureStatuses map[OperationStatus]struct{}
	failureIDs      map[OperationStatusID]struct{}
}

func defaultWaitConfig() waitConfig {
	return waitConfig{
		timeout:         300 * time.Second,
		interval:        5 * time.Second,
		successStatuses: map[OperationStatus]struct{}{OperationStatusSuccess: {}},
		successIDs:      map[OperationStatusID]struct{}{OperationStatusIDSuccess: {}},
		failureStatuses: map[OperationStatus]struct{}{OperationStatusFailure: {}},
		failureIDs:      map[OperationStatusID]struct{}{OperationStatusIDFailure: {}},
	}
}

// WaitTimeout overrides the default 300s overall wait bound
func WaitTimeout(d time.Duration) func(*waitConfig) {
	return func(w *waitConfig) { w.timeout = d }
}

// WaitInterval overrides the default 5s poll interval
func WaitInterval(d time.Duration) func(*waitConfig) {
	return func(w *waitConfig) { w.interval = d }
}

// WaitSuccessStatuses replaces the set of statuses counted as success
func WaitSuccessStatuses(statuses []OperationStatus, ids []OperationStatusID) func(*waitConfig) {
	return func(w *waitConfig) {
		w.successStatuses = statusSet(statuses)
		w.successIDs = statusIDSet(ids)
	}
}

// WaitFailureStatuses replaces the set of statuses counted as failure
func WaitFailureStatuses(statuses []OperationStatus, ids []OperationStatusID) func(*waitConfig) {
	return func(w *waitConfig) {
		w.failureStatuses = statusSet(statuses)
		w.failureIDs = statusIDSet(ids)
	}
}

func statusSet(statuses []OperationStatus) map[OperationStatus]struct{} {
	set := make(map[OperationStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

func statusIDSet(ids []OperationStatusID) map[OperationStatusID]struct{} {
	set := make(map[OperationStatusID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// WaitForCompleted polls the task until every subtask reaches a terminal
// state or the timeout elapses. A subtask is terminal when either its
// status or its status id falls into the success or failure set. An empty
// subtask list means the task is not registered yet and polling continues.
// Transport and HTTP errors during polling are logged and retried.
//
// A validation entry in a failed state aborts the wait immediately with
// TaskValidationError. On timeout the last observed subtasks are returned
// with Result false; if no subtask was ever observed the error is
// EmptyTaskResponseError.
func (t *Task) WaitForCompleted(ctx context.Context, mods ...func(*waitConfig)) (TaskResult, error) {
	cfg := defaultWaitConfig()
	for _, mod := range mods {
		mod(&cfg)
	}

	attempts := int((cfg.timeout + cfg.interval - 1) / cfg.interval)
	if attempts < 1 {
		attempts = 1
	}

	t.client.logger.Info("Waiting for task",
		"task_id", t.ID,
		"timeout", cfg.timeout.String(),
		"interval", cfg.interval.String())

	var lastSubTasks []SubTaskData
	seenSubTasks := false

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := t.client.clock.Sleep(ctx, cfg.interval); err != nil {
				return TaskResult{Result: false, SubTasks: lastSubTasks}, err
			}
		}

		data, err := t.Status(ctx)
		if err != nil {
			if !recoverablePollError(err) {
				return TaskResult{Result: false, SubTasks: lastSubTasks}, err
			}
			t.client.logger.Debug("Task status poll failed, retrying",
				"task_id", t.ID,
				"error", err.Error())
			continue
		}

		if data.Validation != nil {
			switch data.Validation.Status {
			case OperationStatusFailure, OperationStatusValidationFailure:
				return TaskResult{Result: false, SubTasks: data.Data},
					&TaskValidationError{TaskID: t.ID, Status: string(data.Validation.Status)}
			}
		}

		if len(data.Data) == 0 {
			t.client.logger.Debug("Task not registered yet",
				"task_id", t.ID)
			continue
		}
		lastSubTasks = data.Data
		seenSubTasks = true

		if allFinished(data.Data, cfg) {
			result := allSucceeded(data.Data, cfg)
			t.client.logger.Info("Task completed",
				"task_id", t.ID,
				"result", result,
				"subtasks", len(data.Data))
			return TaskResult{Result: result, SubTasks: data.Data}, nil
		}
		t.client.logger.Debug("Task still running",
			"task_id", t.ID,
			"current_activities", currentActivities(data.Data))
	}

	if !seenSubTasks {
		return TaskResult{}, &EmptyTaskResponseError{TaskID: t.ID}
	}
	t.client.logger.Warn("Task did not complete within timeout",
		"task_id", t.ID,
		"timeout", cfg.timeout.String())
	return TaskResult{Result: false, SubTasks: lastSubTasks}, nil
}

func allFinished(subTasks []SubTaskData, cfg waitConfig) bool {
	for _, sub := range subTasks {
		_, statusDone := cfg.successStatuses[sub.Status]
		if !statusDone {
			_, statusDone = cfg.failureStatuses[sub.Status]
		}
		_, idDone := cfg.successIDs[sub.StatusID]
		if !idDone {
			_, idDone = cfg.failureIDs[sub.StatusID]
		}
		if !statusDone && !idDone {
			return false
		}
	}
	return true
}

func allSucceeded(subTasks []SubTaskData, cfg waitConfig) bool {
	for _, sub := range subTasks {
		if _, ok := cfg.successStatuses[sub.Status]; !ok {
			return false
		}
	}
	return true
}

func currentActivities(subTasks []SubTaskData) string {
	activities := make([]string, 0, len(subTasks))
	for _, sub := range subTasks {
		if sub.CurrentActivity != "" {
			activities = append(activities, sub.CurrentActivity)
		}
	}
	return strings.Join(activities, ", ")
}

// recoverablePollError reports whether a poll failure is transient. The
// Manager intermittently returns errors while a task spins up or during a
// restart triggered by the action itself.
func recoverablePollError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// RunningTask is an entry of the active task list
type RunningTask struct {
	ProcessID string `json:"processId"`
	Action    string `json:"action"`
	Name      string `json:"name"`
	StartTime int64  `json:"startTime"`
	Status    string `json:"status"`
	UserID    string `json:"userSessionUserName"`
}

// RunningTasks lists the actions currently in progress on the Manager
func (c *Client) RunningTasks(ctx context.Context) ([]RunningTask, error) {
	res, err := c.Get(ctx, "/dataservice/device/action/status/tasks")
	if err != nil {
		return nil, err
	}
	return DataSequence[RunningTask](res, "runningTasks")
}
